package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/api/middleware"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/services"
)

// AuctionHandler handles REST requests for property auctions.
type AuctionHandler struct {
	auctionService     services.IAuctionService
	defaultExtendHours int
}

// NewAuctionHandler creates a new AuctionHandler.
func NewAuctionHandler(auctionService services.IAuctionService, defaultExtendHours int) *AuctionHandler {
	return &AuctionHandler{
		auctionService:     auctionService,
		defaultExtendHours: defaultExtendHours,
	}
}

type setupAuctionRequest struct {
	PropertyID    uint    `json:"property_id"`
	StartingPrice float64 `json:"starting_price"`
}

// Setup handles POST /v1/admin/auctions
func (h *AuctionHandler) Setup(c *gin.Context) {
	var req setupAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	auction, err := h.auctionService.Setup(c.Request.Context(), req.PropertyID, req.StartingPrice)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"auction_id": auction.ID, "auction": auction})
}

// End handles POST /v1/admin/auctions/:id/end
func (h *AuctionHandler) End(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	res, err := h.auctionService.End(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type extendAuctionRequest struct {
	Hours *int `json:"hours"`
}

// Extend handles POST /v1/admin/auctions/:id/extend. An empty body extends by the
// configured default.
func (h *AuctionHandler) Extend(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req extendAuctionRequest
	if c.Request.Body != nil {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}
	hours := h.defaultExtendHours
	if req.Hours != nil {
		hours = *req.Hours
	}

	newEnd, err := h.auctionService.Extend(c.Request.Context(), id, hours)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"new_end_date": newEnd})
}

// Cancel handles POST /v1/admin/auctions/:id/cancel
func (h *AuctionHandler) Cancel(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.auctionService.Cancel(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// ListActive handles GET /v1/admin/auctions/active
func (h *AuctionHandler) ListActive(c *gin.Context) {
	auctions, err := h.auctionService.ListActiveAuctions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": auctions})
}

// ListRecent handles GET /v1/admin/auctions/recent?limit=N
func (h *AuctionHandler) ListRecent(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultRecentAuctionsLimit)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	auctions, err := h.auctionService.ListRecentResolvedAuctions(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": auctions})
}

// Get handles GET /v1/auctions/:id
func (h *AuctionHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	summary, err := h.auctionService.GetAuction(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type placeBidRequest struct {
	Amount float64 `json:"amount"`
}

// PlaceBid handles POST /v1/auctions/:id/bids for the authenticated caller.
func (h *AuctionHandler) PlaceBid(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	bid, err := h.auctionService.PlaceBid(c.Request.Context(), id, principal.UserID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bid)
}
