package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Farmer96/LuckGen/internal/models"
	"github.com/Farmer96/LuckGen/internal/services"
)

// HTTPHandler holds the dependencies for the HTTP handlers, like the lottery service.
type HTTPHandler struct {
	service   *services.LotteryService
	adminHash string
}

// NewHTTPHandler creates a new HTTPHandler. adminHash is the bcrypt hash of
// the organizer password; admin routes are unprotected when it is empty.
func NewHTTPHandler(service *services.LotteryService, adminHash string) *HTTPHandler {
	return &HTTPHandler{
		service:   service,
		adminHash: adminHash,
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/data", h.GetData)
	api.POST("/login", h.Login)
	api.POST("/draw", h.PerformDraw)
	api.GET("/records", h.GetUserRecords)
	api.GET("/stats", h.GetStats)
	api.POST("/save", h.AdminAuth(), h.SaveConfig)

	admin := api.Group("/admin", h.AdminAuth())
	admin.POST("/login", h.AdminLogin)
	admin.POST("/lottery", h.CreateLottery)
	admin.PUT("/details", h.UpdateDetails)
	admin.DELETE("/lottery", h.ResetLottery)
	admin.POST("/prizes", h.AddPrize)
	admin.PUT("/prizes/:id/level", h.UpdatePrizeLevel)
	admin.PUT("/prizes/:id/name", h.UpdatePrizeName)
	admin.PUT("/prizes/:id/description", h.UpdatePrizeDescription)
	admin.PUT("/prizes/:id/probability", h.UpdatePrizeProbability)
	admin.PUT("/prizes/:id/count", h.UpdatePrizeCount)
	admin.DELETE("/prizes/:id", h.RemovePrize)
	admin.PUT("/users", h.UpsertUser)
	admin.DELETE("/users/:phone", h.RemoveUser)
	admin.POST("/users/csv", h.UploadUsersCSV)
	admin.GET("/records/csv", h.ExportRecordsCSV)
}

// statusFor maps a service error kind to an HTTP status.
func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindNotStarted, services.KindEnded, services.KindNotInvited,
		services.KindNameMismatch, services.KindNoChancesLeft:
		return http.StatusForbidden
	case services.KindUserNotFound, services.KindPrizeNotFound, services.KindNotConfigured:
		return http.StatusNotFound
	case services.KindInvalidConfig:
		return http.StatusBadRequest
	case services.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": msg, "kind": kind}. Errors outside the
// service taxonomy are logged and reported generically.
func respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	if kind == "" {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(statusFor(kind), gin.H{"error": err.Error(), "kind": kind})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": services.KindInvalidConfig})
}

// Health reports liveness.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetData returns the whole lottery document, or null when none exists.
func (h *HTTPHandler) GetData(c *gin.Context) {
	cfg, err := h.service.LoadConfig(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if cfg == nil {
		c.JSON(http.StatusNotFound, nil)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

type loginRequest struct {
	Phone string `json:"phone" binding:"required"`
	Name  string `json:"name"`
}

// Login handles participant login. Refusals are answered with success=false
// and the reason in msg, as the participant page expects.
func (h *HTTPHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.service.CheckEligibility(c.Request.Context(), req.Phone, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{"success": res.Eligible, "msg": "", "user": res.User}
	if !res.Eligible {
		resp["msg"] = res.Reason.Msg
		resp["kind"] = res.Reason.Kind
	}
	c.JSON(http.StatusOK, resp)
}

type drawRequest struct {
	Phone string `json:"phone" binding:"required"`
	Name  string `json:"name"`
}

// PerformDraw handles the request to draw for a participant.
func (h *HTTPHandler) PerformDraw(c *gin.Context) {
	var req drawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	outcome, err := h.service.Draw(c.Request.Context(), req.Phone, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": outcome.Record, "prize": outcome.Prize})
}

// GetUserRecords returns one participant's draw history, newest first.
func (h *HTTPHandler) GetUserRecords(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}
	records, err := h.service.UserRecords(c.Request.Context(), phone)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetStats returns participant, draw and inventory totals.
func (h *HTTPHandler) GetStats(c *gin.Context) {
	st, err := h.service.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// SaveConfig replaces the whole document with the request body.
func (h *HTTPHandler) SaveConfig(c *gin.Context) {
	var cfg models.LotteryConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.service.SaveConfig(c.Request.Context(), &cfg); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
