package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"discussdraft/internal/events"
	"discussdraft/internal/models"
	"discussdraft/internal/page"
	"discussdraft/internal/repositories"
	"discussdraft/internal/services"
)

// Generator is the provider abstraction the message endpoints call.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (models.GenerationOutcome, error)
}

type Deps struct {
	Settings  services.SettingsService
	History   services.HistoryService
	Catalog   services.ModelCatalogService
	Generator Generator
	// RateLimitQPS caps requests per client address. Zero disables limiting.
	RateLimitQPS float64
}

type handler struct {
	Deps
}

// NewRouter wires the message endpoints the browser extension talks to.
func NewRouter(deps Deps) *gin.Engine {
	h := &handler{Deps: deps}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	if deps.RateLimitQPS > 0 {
		r.Use(RateLimit(deps.RateLimitQPS))
	}

	v1 := r.Group("/v1")
	{
		msg := v1.Group("/messages")
		msg.POST("/open-settings", h.openSettings)
		msg.POST("/generate-main-post", h.generate(models.KindMainPost))
		msg.POST("/generate-reply", h.generate(models.KindReply))

		v1.POST("/pages/context", h.pageContext)

		v1.GET("/history", h.listHistory)
		v1.DELETE("/history", h.clearHistory)
		v1.DELETE("/history/:index", h.deleteHistory)

		v1.PUT("/settings", h.updateSettings)
	}
	return r
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

func (h *handler) openSettings(c *gin.Context) {
	settings, err := h.Settings.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	groups, err := h.Catalog.ListModelGroups()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings.Masked(), "models": groups})
}

// generate answers with exactly one outcome. Provider, model and key fall back
// to the stored settings when the message leaves them out.
func (h *handler) generate(kind models.GenerationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.GenerationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request: "+err.Error())
			return
		}
		req.Kind = kind
		ctx := c.Request.Context()

		if req.Provider == "" || req.Model == "" || req.APIKey == "" {
			settings, err := h.Settings.Get(ctx)
			if err != nil {
				c.JSON(http.StatusOK, models.Failed(err.Error()))
				return
			}
			if req.Provider == "" {
				req.Provider = settings.Provider
			}
			if req.Model == "" {
				req.Model = settings.ModelFor(req.Provider)
			}
			if req.APIKey == "" {
				req.APIKey = settings.APIKeyFor(req.Provider)
			}
		}

		outcome, err := h.Generator.Generate(ctx, req)
		if err != nil {
			outcome = models.Failed(err.Error())
		}
		c.JSON(http.StatusOK, outcome)
	}
}

type pageContextRequest struct {
	HTML       string `json:"html" binding:"required"`
	URL        string `json:"url"`
	ReplyCount int    `json:"replyCount"`
}

type pageContextResponse struct {
	IsDiscussionPage bool                     `json:"isDiscussionPage"`
	Context          models.DiscussionContext `json:"context"`
	ReplyCandidates  []models.Post            `json:"replyCandidates"`
	Targets          []page.Target            `json:"targets"`
}

func (h *handler) pageContext(c *gin.Context) {
	var req pageContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	ext, err := page.ParseHTML(req.HTML)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.ReplyCount <= 0 {
		req.ReplyCount = models.DefaultReplyCount
		if settings, err := h.Settings.Get(c.Request.Context()); err == nil {
			req.ReplyCount = settings.ReplyCount
		}
	}

	targets := ext.Targets()
	if targets == nil {
		targets = []page.Target{}
	}
	c.JSON(http.StatusOK, pageContextResponse{
		IsDiscussionPage: page.IsDiscussionPage(req.URL),
		Context:          ext.MainContext(),
		ReplyCandidates:  ext.SampleReplyCandidates(req.ReplyCount),
		Targets:          targets,
	})
}

func (h *handler) listHistory(c *gin.Context) {
	records, err := h.History.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"history": records})
}

func (h *handler) deleteHistory(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "index must be an integer")
		return
	}
	if err := h.History.Delete(c.Request.Context(), index); err != nil {
		if errors.Is(err, repositories.ErrHistoryIndexOutOfRange) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handler) clearHistory(c *gin.Context) {
	if err := h.History.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// settingsUpdate is the PUT /v1/settings body. Omitted fields keep their
// stored values, so an explicit zero temperature is distinguishable from none.
type settingsUpdate struct {
	Provider         models.Provider `json:"aiProvider"`
	ClaudeModel      string          `json:"claudeModel"`
	GeminiModel      string          `json:"geminiModel"`
	Temperature      *float64        `json:"temperature"`
	MaxTokens        *int            `json:"maxTokens"`
	SideInstructions *string         `json:"sideInstructions"`
	ReplyCount       int             `json:"replyCount"`
	ClaudeAPIKey     string          `json:"claudeApiKey"`
	GeminiAPIKey     string          `json:"geminiApiKey"`
}

func (u settingsUpdate) apply(current *models.Settings) models.Settings {
	in := models.Settings{
		Provider:         u.Provider,
		ClaudeModel:      u.ClaudeModel,
		GeminiModel:      u.GeminiModel,
		Temperature:      current.Temperature,
		MaxTokens:        current.MaxTokens,
		SideInstructions: current.SideInstructions,
		ReplyCount:       u.ReplyCount,
		ClaudeAPIKey:     u.ClaudeAPIKey,
		GeminiAPIKey:     u.GeminiAPIKey,
	}
	if u.Temperature != nil {
		in.Temperature = *u.Temperature
	}
	if u.MaxTokens != nil {
		in.MaxTokens = *u.MaxTokens
	}
	if u.SideInstructions != nil {
		in.SideInstructions = *u.SideInstructions
	}
	return in
}

func (h *handler) updateSettings(c *gin.Context) {
	var body settingsUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	current, err := h.Settings.Get(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	saved, err := h.Settings.Update(ctx, body.apply(current))
	if err != nil {
		if isValidation(err) {
			badRequest(c, err.Error())
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	events.Emit(ctx, events.SettingsSaved, events.NewSuccess("settings saved").With("provider", string(saved.Provider)))
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": saved.Masked()})
}

func isValidation(err error) bool {
	return errors.Is(err, services.ErrInvalidInput) ||
		errors.Is(err, services.ErrInvalidAPIKey) ||
		errors.Is(err, services.ErrMissingAPIKey) ||
		errors.Is(err, services.ErrUnknownModel)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/v1/") {
			slog.Debug("request",
				slog.String("method", c.Request.Method),
				slog.String("path", path),
				slog.Int("status", c.Writer.Status()),
			)
		}
	}
}
