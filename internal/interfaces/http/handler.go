package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"atendebot/internal/entities"
	"atendebot/internal/infrastructure"
	"atendebot/internal/repository"
	"atendebot/internal/usecases"
)

const throttledReply = "⏳ Muitas mensagens seguidas! Aguarde um instante e tente novamente."

type Handler struct {
	orchestrator *usecases.Orchestrator
	messageRepo  *repository.MessageRepository
	sessionRepo  *repository.SessionRepository
	configRepo   *repository.ConfigRepository
	limiter      *infrastructure.MessageRateLimiter
	log          *infrastructure.Logger
}

func NewHandler(
	orchestrator *usecases.Orchestrator,
	messageRepo *repository.MessageRepository,
	sessionRepo *repository.SessionRepository,
	configRepo *repository.ConfigRepository,
	limiter *infrastructure.MessageRateLimiter,
	log *infrastructure.Logger,
) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		messageRepo:  messageRepo,
		sessionRepo:  sessionRepo,
		configRepo:   configRepo,
		limiter:      limiter,
		log:          log,
	}
}

// SetupRoutes wires the webhook entrypoint and, when the repositories
// are available (not demo mode), the authenticated dashboard API.
func SetupRoutes(r *gin.Engine, h *Handler, auth *usecases.AuthUsecase, middleware *Middleware) {
	// Apply Security Middleware
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(1 << 20)) // 1MB max request size
	r.Use(middleware.CORSMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public Routes. The transport gateway authenticates the channel
	// and resolves the tenant before calling this.
	r.POST("/webhook/message", h.HandleInboundMessage)

	if auth == nil || h.messageRepo == nil {
		return
	}

	// Public Auth Routes
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", func(c *gin.Context) {
			var loginReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&loginReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			token, err := auth.Login(c.Request.Context(), loginReq.Username, loginReq.Password)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
		})

		authGroup.POST("/register", func(c *gin.Context) {
			var regReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&regReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			// Validate inputs
			if !ValidSlug(regReq.Username) || len(regReq.Password) < 6 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username or password (min 6 chars)"})
				return
			}
			if err := auth.Register(c.Request.Context(), regReq.Username, regReq.Password); err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusCreated, gin.H{"status": "registered"})
		})
	}

	// Protected Dashboard Routes
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(5, 10))
	{
		api.GET("/analytics/outcomes", h.GetOutcomeCounts)
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/:user_id/messages", h.GetSessionHistory)

		// Config Routes
		api.GET("/config", h.GetAllConfigs)
		api.POST("/config", h.SetConfig)
	}
}

// HandleInboundMessage is the webhook entrypoint for inbound turns.
func (h *Handler) HandleInboundMessage(c *gin.Context) {
	var in entities.InboundMessage
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if in.TenantID == "" || in.UserID == "" || in.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id, user_id and text are required"})
		return
	}
	in.Text = SanitizeString(TruncateString(in.Text, MaxMessageLength))

	// Throttled conversations get a fixed reply without touching
	// session state.
	if h.limiter != nil && !h.limiter.Allow(in.TenantID+":"+in.UserID) {
		c.JSON(http.StatusOK, gin.H{"response_text": throttledReply})
		return
	}

	result, err := h.orchestrator.Orchestrate(c.Request.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, entities.ErrFlowBusy):
			c.Header("Retry-After", "2")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "conversation busy, retry shortly"})
		case errors.Is(err, entities.ErrServiceUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		default:
			h.log.Error("orchestration failed", "tenant", in.TenantID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed, please retry"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
