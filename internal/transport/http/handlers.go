// Package http exposes the editor over REST for the UI shell. Handlers
// translate between JSON and the app layer; every invariant lives below
// them.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lovenda/seatplan/internal/analytics"
	"github.com/lovenda/seatplan/internal/app"
	"github.com/lovenda/seatplan/internal/core"
	"github.com/lovenda/seatplan/internal/domain"
)

type Handlers struct {
	Registry *app.Registry
	Ingest   analytics.Sink
}

func NewHandlers(registry *app.Registry, ingest analytics.Sink) *Handlers {
	return &Handlers{Registry: registry, Ingest: ingest}
}

func (h *Handlers) editor(c *gin.Context) (*app.Editor, bool) {
	sid := domain.SessionID(c.GetString("client_token"))
	weddingID := domain.WeddingID(c.Param("weddingID"))
	if sid == "" || weddingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing wedding or session"})
		return nil, false
	}
	ed, err := h.Registry.GetOrCreate(c.Request.Context(), sid, weddingID, domain.UserID(sid))
	if err != nil {
		log.Error().Str("module", "transport.http").Str("wedding", string(weddingID)).Err(err).Msg("open editor")
		c.JSON(http.StatusBadGateway, gin.H{"error": "plan unavailable"})
		return nil, false
	}
	return ed, true
}

// fail maps the domain error taxonomy onto status codes: validation is
// the caller's fault, invariant violations are conflicts, unknown
// references are 404s.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownTable):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSeatOccupied),
		errors.Is(err, domain.ErrGuestAlreadySeated),
		errors.Is(err, domain.ErrSeatOutOfRange),
		errors.Is(err, domain.ErrTableOverlap):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// GetPlan returns the full editing state for the UI to render.
func (h *Handlers) GetPlan(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	state := ed.Gate.State()
	c.JSON(http.StatusOK, gin.H{
		"tables":      ed.Layout.Tables(),
		"assignments": ed.Assignments.Snapshot(),
		"viewport":    ed.Viewport(),
		"onboarding": gin.H{
			"state":       state,
			"currentStep": ed.Gate.CurrentStep(),
			"showOverlay": ed.Gate.ShowOverlay(),
		},
		"online":    ed.Presence.Online(),
		"conflicts": ed.Presence.Conflicts(),
	})
}

type createTableRequest struct {
	Shape    domain.Shape `json:"shape" binding:"required"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	Width    float64      `json:"width"`
	Height   float64      `json:"height"`
	Capacity int          `json:"capacity" binding:"required"`
}

func (h *Handlers) CreateTable(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	var req createTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid table payload"})
		return
	}
	table, err := domain.NewTable(req.Shape, req.X, req.Y, req.Width, req.Height, req.Capacity)
	if err != nil {
		fail(c, err)
		return
	}
	added, err := ed.AddTable(table)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

type positionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (h *Handlers) PlaceTable(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position payload"})
		return
	}
	pos, err := ed.PlaceTable(domain.TableID(c.Param("tableID")), core.Point{X: req.X, Y: req.Y})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

func (h *Handlers) DeleteTable(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	evicted := ed.RemoveTable(domain.TableID(c.Param("tableID")))
	c.JSON(http.StatusOK, gin.H{"evictedGuests": evicted})
}

type autoLayoutRequest struct {
	Strategy core.Strategy `json:"strategy" binding:"required"`
}

func (h *Handlers) AutoLayout(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	var req autoLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid layout payload"})
		return
	}
	arranged, err := ed.AutoLayout(req.Strategy)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": arranged})
}

type assignRequest struct {
	GuestID   domain.GuestID `json:"guestId" binding:"required"`
	TableID   domain.TableID `json:"tableId" binding:"required"`
	SeatIndex *int           `json:"seatIndex" binding:"required"`
}

func (h *Handlers) Assign(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignment payload"})
		return
	}
	if err := ed.Assign(req.GuestID, req.TableID, *req.SeatIndex); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type moveRequest struct {
	TableID   domain.TableID `json:"tableId" binding:"required"`
	SeatIndex *int           `json:"seatIndex" binding:"required"`
}

func (h *Handlers) Move(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid move payload"})
		return
	}
	if err := ed.Move(domain.GuestID(c.Param("guestID")), req.TableID, *req.SeatIndex); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) Unassign(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	ed.Unassign(domain.GuestID(c.Param("guestID")))
	c.Status(http.StatusNoContent)
}

type bulkAssignRequest struct {
	KeepParties     bool           `json:"keepParties"`
	AccessibleTable domain.TableID `json:"accessibleTableId"`
}

func (h *Handlers) BulkAutoAssign(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	var req bulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bulk assign payload"})
		return
	}
	unplaced := ed.BulkAutoAssign(core.AssignPolicy{
		KeepParties:     req.KeepParties,
		AccessibleTable: req.AccessibleTable,
	})
	c.JSON(http.StatusOK, gin.H{"unplacedGuests": unplaced})
}

func (h *Handlers) SetGuests(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	var guests []domain.Guest
	if err := c.ShouldBindJSON(&guests); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guest list"})
		return
	}
	ed.SetGuests(guests)
	c.Status(http.StatusNoContent)
}

func (h *Handlers) Undo(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": ed.Undo()})
}

func (h *Handlers) Redo(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": ed.Redo()})
}

func (h *Handlers) SetViewport(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	var v core.Viewport
	if err := c.ShouldBindJSON(&v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid viewport payload"})
		return
	}
	ed.SetViewport(c.Request.Context(), v)
	c.JSON(http.StatusOK, ed.Viewport())
}

type dismissRequest struct {
	Dismissed bool `json:"dismissed"`
}

func (h *Handlers) DismissOnboarding(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	var req dismissRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dismiss payload"})
		return
	}
	ed.DismissOnboarding(c.Request.Context(), req.Dismissed)
	c.Status(http.StatusNoContent)
}

// IngestEvents is the analytics collector endpoint: clients post event
// batches here and any 2xx acknowledges the whole batch.
func (h *Handlers) IngestEvents(c *gin.Context) {
	var batch []domain.Event
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event batch"})
		return
	}
	if len(batch) == 0 {
		c.Status(http.StatusAccepted)
		return
	}
	if err := h.Ingest.Send(c.Request.Context(), batch); err != nil {
		log.Error().Str("module", "transport.http").Err(err).Msg("event ingest failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingest failed"})
		return
	}
	c.Status(http.StatusAccepted)
}
