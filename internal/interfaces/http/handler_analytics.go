package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"atendebot/internal/entities"
)

// getTenantID extracts tenant_id from JWT context
func getTenantID(c *gin.Context) string {
	tenant, exists := c.Get("tenant_id")
	if !exists || tenant == nil {
		return ""
	}
	if t, ok := tenant.(string); ok {
		return t
	}
	return ""
}

// getSchemaName extracts schema_name from JWT context, defaults to "public"
func getSchemaName(c *gin.Context) string {
	schema, exists := c.Get("schema_name")
	if !exists || schema == nil {
		return "public"
	}
	if s, ok := schema.(string); ok && s != "" {
		return s
	}
	return "public"
}

// GetOutcomeCounts returns the per-day outcome rollup for the tenant
func (h *Handler) GetOutcomeCounts(c *gin.Context) {
	tenant := getTenantID(c)
	if tenant == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "No tenant bound to account"})
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		days = 30
	}

	counts, err := h.messageRepo.OutcomeCounts(c.Request.Context(), tenant, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days, "outcomes": counts})
}

// ListSessions returns the tenant's conversation sessions
func (h *Handler) ListSessions(c *gin.Context) {
	tenant := getTenantID(c)
	if tenant == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "No tenant bound to account"})
		return
	}

	sessions, err := h.sessionRepo.ListByTenant(c.Request.Context(), tenant)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetSessionHistory returns the recent turns of one conversation
func (h *Handler) GetSessionHistory(c *gin.Context) {
	tenant := getTenantID(c)
	if tenant == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "No tenant bound to account"})
		return
	}

	userID := c.Param("user_id")
	if !ValidSlug(userID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	sessionID := entities.SessionID(tenant, userID)
	messages, err := h.messageRepo.History(c.Request.Context(), tenant, sessionID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, messages)
}

// GetAllConfigs returns the tenant's reply configuration
func (h *Handler) GetAllConfigs(c *gin.Context) {
	schema := getSchemaName(c)
	configs, err := h.configRepo.GetAllConfigs(c.Request.Context(), schema)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, configs)
}

// SetConfig sets one reply override for the tenant
func (h *Handler) SetConfig(c *gin.Context) {
	schema := getSchemaName(c)

	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidConfigKey(req.Key) || !ValidateLength(req.Value, 1, MaxConfigValLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid key or value"})
		return
	}

	if err := h.configRepo.SetConfig(c.Request.Context(), schema, req.Key, SanitizeString(req.Value)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}
