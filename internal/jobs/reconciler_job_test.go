package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"zkpredict/internal/chain"
	"zkpredict/internal/models"
	"zkpredict/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testProgramID = "zkpredict_v1.aleo"

func setupTestRepo(t *testing.T) *repository.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&models.Event{}, &models.UserParticipation{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return repository.NewRepository(db)
}

func TestSweepConfirmsRowsPresentOnChain(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	confirmed, err := repo.CreateEvent(ctx, "landed on-chain", "desc")
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	pending, err := repo.CreateEvent(ctx, "still pending", "desc")
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if _, err := repo.UpsertStake(ctx, "k1", confirmed.EventID, "aleo1a", decimal.NewFromInt(100), decimal.Zero); err != nil {
		t.Fatalf("UpsertStake failed: %v", err)
	}

	// Event 1 and stake k1 exist on-chain; event 2 does not yet.
	responses := map[string]string{
		"/" + testProgramID + "/events/1field": "{ event_id: 1field, total_yes_stake: 100u64, total_no_stake: 0u64, resolved: false, outcome: false }",
		"/" + testProgramID + "/events/2field": "None",
		"/" + testProgramID + "/user_stake/k1": "100u64",
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		value, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(value)
	}))
	defer server.Close()

	job := NewReconcilerJob(repo, chain.NewReader(server.URL, testProgramID))
	if err := job.Sweep(ctx); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	got, _ := repo.GetEventByEventID(ctx, confirmed.EventID)
	if !got.IsChainSuccess {
		t.Errorf("Expected event %d confirmed by sweep", confirmed.EventID)
	}

	got, _ = repo.GetEventByEventID(ctx, pending.EventID)
	if got.IsChainSuccess {
		t.Errorf("Event %d must stay unconfirmed while the mapping is absent", pending.EventID)
	}

	stake, _ := repo.GetStakeByKey(ctx, "k1")
	if !stake.IsChainSuccess {
		t.Errorf("Expected stake k1 confirmed by sweep")
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	event, err := repo.CreateEvent(ctx, "landed on-chain", "desc")
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode("{ event_id: 1field, total_yes_stake: 0u64, total_no_stake: 0u64, resolved: false, outcome: false }")
	}))
	defer server.Close()

	job := NewReconcilerJob(repo, chain.NewReader(server.URL, testProgramID))
	if err := job.Sweep(ctx); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if err := job.Sweep(ctx); err != nil {
		t.Fatalf("Second sweep failed: %v", err)
	}

	got, _ := repo.GetEventByEventID(ctx, event.EventID)
	if !got.IsChainSuccess {
		t.Errorf("Expected event confirmed")
	}
}
