package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridemeter/internal/domain"
	"ridemeter/internal/service"
)

// BillingHandler handles HTTP requests for metered driver sessions.
type BillingHandler struct {
	meter *service.BillingMeter
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(meter *service.BillingMeter) *BillingHandler {
	return &BillingHandler{meter: meter}
}

// LiveStateResponse is the HTTP response for the open sessions of a driver.
type LiveStateResponse struct {
	DriverID string                  `json:"driver_id"`
	Live     domain.LiveBillingState `json:"live"`
}

// StopSessionResponse is the HTTP response for closing a session.
// Record is null when no session of that type was open.
type StopSessionResponse struct {
	DriverID string                `json:"driver_id"`
	Charged  bool                  `json:"charged"`
	Record   *domain.BillingRecord `json:"record"`
}

// RecordsResponse is the HTTP response for the record list.
type RecordsResponse struct {
	DriverID string                 `json:"driver_id"`
	Records  []domain.BillingRecord `json:"records"`
}

// StartSession returns the handler for POST /v1/drivers/:id/billing/<type>/start
func (h *BillingHandler) StartSession(sessionType domain.BillingSessionType) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.Param("id")
		ctx := c.Request.Context()
		if err := h.meter.Start(ctx, driverID, sessionType); err != nil {
			respondError(c, err)
			return
		}

		live, err := h.meter.LiveState(ctx, driverID)
		if err != nil {
			respondError(c, err)
			return
		}
		respondJSON(c, http.StatusOK, LiveStateResponse{DriverID: driverID, Live: live})
	}
}

// StopSession returns the handler for POST /v1/drivers/:id/billing/<type>/stop
func (h *BillingHandler) StopSession(sessionType domain.BillingSessionType) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.Param("id")
		record, err := h.meter.Stop(c.Request.Context(), driverID, sessionType)
		if err != nil {
			respondError(c, err)
			return
		}
		respondJSON(c, http.StatusOK, StopSessionResponse{
			DriverID: driverID,
			Charged:  record != nil,
			Record:   record,
		})
	}
}

// GetLiveState handles GET /v1/drivers/:id/billing/live
func (h *BillingHandler) GetLiveState(c *gin.Context) {
	driverID := c.Param("id")
	live, err := h.meter.LiveState(c.Request.Context(), driverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, LiveStateResponse{DriverID: driverID, Live: live})
}

// ResetLiveState handles DELETE /v1/drivers/:id/billing/live
func (h *BillingHandler) ResetLiveState(c *gin.Context) {
	if err := h.meter.ResetLiveState(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetRecords handles GET /v1/drivers/:id/billing/records
func (h *BillingHandler) GetRecords(c *gin.Context) {
	driverID := c.Param("id")
	records, err := h.meter.Records(c.Request.Context(), driverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, RecordsResponse{DriverID: driverID, Records: records})
}

// ClearRecords handles DELETE /v1/drivers/:id/billing/records
func (h *BillingHandler) ClearRecords(c *gin.Context) {
	if err := h.meter.ClearRecords(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetStatement handles GET /v1/drivers/:id/billing/statement
// ?format=text renders the plain-text statement.
func (h *BillingHandler) GetStatement(c *gin.Context) {
	statement, err := h.meter.Statement(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "text" {
		c.String(http.StatusOK, service.FormatStatement(statement))
		return
	}
	respondJSON(c, http.StatusOK, statement)
}
