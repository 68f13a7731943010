package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"zkpredict/internal/auth"
	"zkpredict/internal/models"
	"zkpredict/internal/repository"
	"zkpredict/internal/services"
)

// defaultEventLimit bounds the public listing page.
const defaultEventLimit = 9

type EventHandler struct {
	repo        *repository.Repository
	coordinator *services.Coordinator
}

func NewEventHandler(repo *repository.Repository, coordinator *services.Coordinator) *EventHandler {
	return &EventHandler{
		repo:        repo,
		coordinator: coordinator,
	}
}

// ListEvents retrieves events ordered by event id descending.
// GET /api/events
func (h *EventHandler) ListEvents(c *gin.Context) {
	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	events, err := h.repo.ListEvents(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetEvent retrieves one event by its numeric event id.
// GET /api/event?eventId=
func (h *EventHandler) GetEvent(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Query("eventId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid eventId"})
		return
	}

	event, err := h.repo.GetEventByEventID(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event": event})
}

// CreateEvent runs the full create flow: mirror write, create_event
// submission, mirror confirmation. Admin only.
// POST /api/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	sender, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.coordinator.CreateEvent(c.Request.Context(), sender, req.EventName, req.EventDetail)
	if err != nil {
		if result != nil && result.Event != nil {
			// The mirror row exists but the chain write did not go through.
			// Surface both so the client can retry or wait for the sweep.
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "result": result})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ConfirmEvent marks an event's creation transaction as accepted. Idempotent.
// PATCH /api/events
func (h *EventHandler) ConfirmEvent(c *gin.Context) {
	var req models.ConfirmEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.repo.MarkEventChainConfirmed(c.Request.Context(), req.EventID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event_id": req.EventID, "is_chain_success": true})
}

// ResolveEvent submits resolve_event with the outcome and marks the mirror
// row resolved. Admin only.
// PATCH /api/events/resolve
func (h *EventHandler) ResolveEvent(c *gin.Context) {
	sender, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.ResolveEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txID, err := h.coordinator.ResolveEvent(c.Request.Context(), sender, req.EventID, *req.Outcome)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event_id": req.EventID, "transaction_id": txID})
}

// Unpause submits the admin unpause transaction.
// POST /api/events/unpause
func (h *EventHandler) Unpause(c *gin.Context) {
	sender, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	txID, err := h.coordinator.Unpause(c.Request.Context(), sender)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction_id": txID})
}
