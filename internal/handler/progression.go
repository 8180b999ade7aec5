package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ridemeter/internal/domain"
	"ridemeter/internal/service"
)

// ProgressionHandler handles HTTP requests for the tier ledger and trip completions.
type ProgressionHandler struct {
	ledger     *service.ProgressionLedger
	accounting *service.AccountingService
	currency   string
}

// NewProgressionHandler creates a new ProgressionHandler.
func NewProgressionHandler(ledger *service.ProgressionLedger, accounting *service.AccountingService, currency string) *ProgressionHandler {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &ProgressionHandler{ledger: ledger, accounting: accounting, currency: strings.ToLower(currency)}
}

// TiersResponse is the HTTP response for the tier table.
type TiersResponse struct {
	VIPThreshold int                `json:"vip_threshold"`
	Tiers        []domain.LevelTier `json:"tiers"`
}

// PositionResponse is the HTTP response for a position lookup.
type PositionResponse struct {
	TotalCompletedRides int               `json:"total_completed_rides"`
	VIP                 bool              `json:"vip"`
	Position            *service.Position `json:"position,omitempty"`
}

// CompleteTripRequest is the HTTP request body for completing a trip.
type CompleteTripRequest struct {
	CompletedAt *time.Time `json:"completed_at"`
	RidesToday  int        `json:"rides_today" binding:"gte=0"`
}

// SetTotalRequest is the HTTP request body for back-filling a ride total.
type SetTotalRequest struct {
	TotalCompletedRides *int `json:"total_completed_rides" binding:"required"`
}

// GetTiers handles GET /v1/progression/tiers
func (h *ProgressionHandler) GetTiers(c *gin.Context) {
	tiers := service.Tiers()
	for i := range tiers {
		tiers[i].BonusAmount = tiers[i].BonusAmount.In(h.currency)
	}
	respondJSON(c, http.StatusOK, TiersResponse{VIPThreshold: service.VIPThreshold, Tiers: tiers})
}

// GetPosition handles GET /v1/progression/position?total=N
func (h *ProgressionHandler) GetPosition(c *gin.Context) {
	total, err := strconv.Atoi(c.Query("total"))
	if err != nil || total < 0 {
		respondError(c, service.ErrInvalidRideTotal)
		return
	}

	response := PositionResponse{TotalCompletedRides: total, VIP: service.IsVIP(total)}
	if pos, ok := service.PositionFor(total); ok {
		pos.Tier.BonusAmount = pos.Tier.BonusAmount.In(h.currency)
		response.Position = &pos
	}
	respondJSON(c, http.StatusOK, response)
}

// GetProgress handles GET /v1/drivers/:id/progression
func (h *ProgressionHandler) GetProgress(c *gin.Context) {
	progress, err := h.ledger.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, progress)
}

// SetTotal handles PUT /v1/drivers/:id/progression
func (h *ProgressionHandler) SetTotal(c *gin.Context) {
	var req SetTotalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	driverID := c.Param("id")
	if err := h.ledger.SetTotal(ctx, driverID, *req.TotalCompletedRides); err != nil {
		respondError(c, err)
		return
	}

	progress, err := h.ledger.Progress(ctx, driverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, progress)
}

// CompleteTrip handles POST /v1/drivers/:id/trips/complete
func (h *ProgressionHandler) CompleteTrip(c *gin.Context) {
	// The body is optional.
	var req CompleteTripRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	serviceReq := service.CompleteTripRequest{
		DriverID:   c.Param("id"),
		RidesToday: req.RidesToday,
	}
	if req.CompletedAt != nil {
		serviceReq.CompletedAt = *req.CompletedAt
	}

	result, err := h.accounting.CompleteTrip(c.Request.Context(), serviceReq)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, result)
}
