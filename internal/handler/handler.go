package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/MMVenjoyer/mvp-postback-helper/docs"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/campaign"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/domain"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/dto"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/service"
)

// UUIDResolver chases a deeplink redirect chain down to a subscriber UUID.
type UUIDResolver interface {
	ResolveUUID(ctx context.Context, rawURL string) (string, error)
}

// CampaignController is the slice of the campaign sync service the API
// surface needs.
type CampaignController interface {
	Run(ctx context.Context)
	Stop()
	Running() bool
	SyncMissing(ctx context.Context) (*campaign.SyncResult, error)
}

type Handler struct {
	postbacks service.PostbackServicer
	resolver  UUIDResolver
	campaigns CampaignController
	router    *gin.Engine
	log       *zap.Logger
}

func NewHandler(postbacks service.PostbackServicer, resolver UUIDResolver, campaigns CampaignController, log *zap.Logger) *Handler {
	h := &Handler{
		postbacks: postbacks,
		resolver:  resolver,
		campaigns: campaigns,
		router:    gin.Default(),
		log:       log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)

	pb := h.router.Group("/postback")
	pb.GET("/ftm", h.postback(domain.KindFirstMessage))
	pb.GET("/reg", h.postback(domain.KindRegistration))
	pb.GET("/dep", h.postback(domain.KindDeposit))
	pb.GET("/redep", h.postback(domain.KindRedeposit))
	pb.GET("/withdraw", h.postback(domain.KindWithdrawal))
	pb.GET("/revenue", h.postback(domain.KindRevenue))
	pb.GET("/manager", h.postback(domain.KindManagerAssignment))
	pb.GET("/lookup", h.lookupUser)
	pb.GET("/user/:user_id/history", h.userHistory)
	pb.GET("/test/:user_id", h.testUser)
	pb.GET("/stats", h.stats)

	h.router.GET("/resolve/uuid", h.resolveUUID)

	api := h.router.Group("/api/campaigns")
	api.POST("/sync-start", h.campaignSyncStart)
	api.POST("/stop", h.campaignStop)
	api.GET("/stats", h.campaignStats)

	h.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// postback builds the shared query-string handler for one event kind.
// Expected pipeline failures (missing identifiers, duplicates) come back as
// HTTP 200 with status "error" so tracker retry loops do not hammer us;
// only storage-level faults surface as 500.
// @Summary Ingest a conversion postback
// @Description Record a funnel event for a user and fan it out to the configured trackers
// @Tags postback
// @Produce json
// @Param id query string false "Internal numeric user id"
// @Param subscriber_id query string false "Subscriber UUID"
// @Param clickid query string false "Tracker click id"
// @Param trader_id query string false "Trading platform account id"
// @Param sum query string false "Event amount"
// @Param commission query string false "Commission amount"
// @Param manager query string false "Manager name (manager endpoint only)"
// @Success 200 {object} dto.PostbackResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /postback/dep [get]
func (h *Handler) postback(kind domain.EventKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q dto.PostbackQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			h.log.Warn("Invalid postback query",
				zap.Error(err),
				zap.String("kind", kind.String()))
			c.JSON(http.StatusOK, dto.PostbackResponse{
				Status: "error",
				Error:  err.Error(),
			})
			return
		}

		resp, err := h.postbacks.Process(c.Request.Context(), kind, &q)
		if err != nil {
			h.log.Error("Postback processing failed",
				zap.Error(err),
				zap.String("kind", kind.String()))
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error:   "internal_error",
				Message: err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// lookupUser handles GET /postback/lookup
// @Summary Look up a user by any identifier
// @Tags postback
// @Produce json
// @Param id query string false "Internal numeric user id"
// @Param subscriber_id query string false "Subscriber UUID"
// @Param clickid query string false "Tracker click id"
// @Param trader_id query string false "Trading platform account id"
// @Success 200 {object} dto.LookupResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /postback/lookup [get]
func (h *Handler) lookupUser(c *gin.Context) {
	var q dto.LookupQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusOK, dto.LookupResponse{Status: "error", Error: err.Error()})
		return
	}

	resp, err := h.postbacks.Lookup(c.Request.Context(), &q)
	if err != nil {
		h.log.Error("Lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// userHistory handles GET /postback/user/:user_id/history
// @Summary Event history for a user
// @Tags postback
// @Produce json
// @Param user_id path int true "Internal user id"
// @Param limit query int false "Max rows" default(50)
// @Success 200 {object} dto.HistoryResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /postback/user/{user_id}/history [get]
func (h *Handler) userHistory(c *gin.Context) {
	h.history(c, 50)
}

// testUser handles GET /postback/test/:user_id, a short history view used
// to eyeball a user's state after sending test postbacks.
// @Summary Short event history for a user
// @Tags postback
// @Produce json
// @Param user_id path int true "Internal user id"
// @Success 200 {object} dto.HistoryResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /postback/test/{user_id} [get]
func (h *Handler) testUser(c *gin.Context) {
	h.history(c, 10)
}

func (h *Handler) history(c *gin.Context, defaultLimit int) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: "user_id must be an integer",
		})
		return
	}

	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	resp, err := h.postbacks.History(c.Request.Context(), userID, limit)
	if err != nil {
		h.log.Error("History failed",
			zap.Error(err),
			zap.Int64("user_id", userID))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// stats handles GET /postback/stats
// @Summary Aggregate event statistics
// @Tags postback
// @Produce json
// @Success 200 {object} dto.StatsResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /postback/stats [get]
func (h *Handler) stats(c *gin.Context) {
	resp, err := h.postbacks.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("Stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// resolveUUID handles GET /resolve/uuid
// @Summary Resolve a subscriber UUID from a deeplink redirect chain
// @Tags resolve
// @Produce json
// @Param url query string true "Starting URL"
// @Success 200 {object} dto.ResolveResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /resolve/uuid [get]
func (h *Handler) resolveUUID(c *gin.Context) {
	var q dto.ResolveQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: "url is required",
		})
		return
	}

	uuid, err := h.resolver.ResolveUUID(c.Request.Context(), q.URL)
	if err != nil {
		h.log.Warn("UUID resolution failed",
			zap.Error(err),
			zap.String("url", q.URL))
		c.JSON(http.StatusOK, dto.ResolveResponse{
			Status: "error",
			Error:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.ResolveResponse{
		Status: "ok",
		UUID:   uuid,
	})
}

// campaignSyncStart handles POST /api/campaigns/sync-start
// @Summary Start the background campaign sync loop
// @Tags campaigns
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/campaigns/sync-start [post]
func (h *Handler) campaignSyncStart(c *gin.Context) {
	if h.campaigns.Running() {
		c.JSON(http.StatusOK, gin.H{"status": "already_running"})
		return
	}

	go h.campaigns.Run(context.Background())
	h.log.Info("Campaign sync started via API")

	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

// campaignStop handles POST /api/campaigns/stop
// @Summary Stop the background campaign sync loop
// @Tags campaigns
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/campaigns/stop [post]
func (h *Handler) campaignStop(c *gin.Context) {
	h.campaigns.Stop()
	h.log.Info("Campaign sync stopped via API")

	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

// campaignStats handles GET /api/campaigns/stats
// @Summary Campaign data coverage counters
// @Tags campaigns
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/campaigns/stats [get]
func (h *Handler) campaignStats(c *gin.Context) {
	resp, err := h.postbacks.CampaignStats(c.Request.Context())
	if err != nil {
		h.log.Error("Campaign stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"running": h.campaigns.Running(),
		"stats":   resp,
	})
}
