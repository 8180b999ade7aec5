package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridemeter/internal/domain"
	"ridemeter/internal/service"
)

// VIPHandler handles HTTP requests for the VIP loyalty track.
type VIPHandler struct {
	ledger     *service.ProgressionLedger
	tracker    *service.VIPTracker
	accounting *service.AccountingService
}

// NewVIPHandler creates a new VIPHandler.
func NewVIPHandler(ledger *service.ProgressionLedger, tracker *service.VIPTracker, accounting *service.AccountingService) *VIPHandler {
	return &VIPHandler{ledger: ledger, tracker: tracker, accounting: accounting}
}

// VIPStatusResponse is the HTTP response for a driver's VIP status.
type VIPStatusResponse struct {
	DriverID            string           `json:"driver_id"`
	VIP                 bool             `json:"vip"`
	TotalCompletedRides int              `json:"total_completed_rides"`
	RidesToVIP          int              `json:"rides_to_vip"`
	State               *domain.VIPState `json:"state,omitempty"`
}

// RecordDayRequest is the HTTP request body for a daily activity signal.
type RecordDayRequest struct {
	Date  *time.Time `json:"date"`
	Rides int        `json:"rides" binding:"gte=0"`
}

// GetStatus handles GET /v1/drivers/:id/vip
func (h *VIPHandler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()
	driverID := c.Param("id")

	total, err := h.ledger.TotalRides(ctx, driverID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := VIPStatusResponse{
		DriverID:            driverID,
		VIP:                 service.IsVIP(total),
		TotalCompletedRides: total,
	}
	if !response.VIP {
		response.RidesToVIP = service.VIPThreshold - total
		respondJSON(c, http.StatusOK, response)
		return
	}

	state, err := h.tracker.State(ctx, driverID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.State = state
	respondJSON(c, http.StatusOK, response)
}

// RecordDay handles POST /v1/drivers/:id/vip/days
func (h *VIPHandler) RecordDay(c *gin.Context) {
	var req RecordDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var date time.Time
	if req.Date != nil {
		date = *req.Date
	}

	result, err := h.accounting.RecordVIPDay(c.Request.Context(), c.Param("id"), date, req.Rides)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, result)
}

// Rollover handles POST /v1/drivers/:id/vip/rollover
func (h *VIPHandler) Rollover(c *gin.Context) {
	result, err := h.accounting.Rollover(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, result)
}
