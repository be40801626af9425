package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/BarkinBalci/synthesis-engine/docs"
	"github.com/BarkinBalci/synthesis-engine/internal/auth"
	"github.com/BarkinBalci/synthesis-engine/internal/domain"
	"github.com/BarkinBalci/synthesis-engine/internal/dto"
	"github.com/BarkinBalci/synthesis-engine/internal/service"
)

const (
	subjectKey    = "subject"
	healthTimeout = 2 * time.Second
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerStater reports the text generation circuit breaker state
type BreakerStater interface {
	State() string
}

type Handler struct {
	synthesisService service.SynthesisServicer
	verifier         *auth.Verifier
	limiter          *auth.SubjectLimiter
	store            Pinger
	breaker          BreakerStater
	router           *gin.Engine
	log              *zap.Logger
}

func NewHandler(synthesisService service.SynthesisServicer, verifier *auth.Verifier, limiter *auth.SubjectLimiter, store Pinger, breaker BreakerStater, log *zap.Logger) *Handler {
	h := &Handler{
		synthesisService: synthesisService,
		verifier:         verifier,
		limiter:          limiter,
		store:            store,
		breaker:          breaker,
		router:           gin.Default(),
		log:              log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	admin := h.router.Group("/", h.requireAdmin)
	admin.POST("/queries", h.rateLimit, h.submitQuery)
	admin.DELETE("/queries/cache", h.invalidateQuery)
	admin.GET("/reports", h.getReport)
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check if the service and its event store are reachable; reports the text generation breaker state when configured
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	response := gin.H{"status": "ok"}
	// An open breaker only degrades narratives to the fallback, so it stays 200.
	if h.breaker != nil {
		response["text_generation"] = h.breaker.State()
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		if err := h.store.Ping(ctx); err != nil {
			h.log.Warn("Health check failed", zap.Error(err))
			response["status"] = "degraded"
			response["event_store"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
	}

	c.JSON(http.StatusOK, response)
}

// submitQuery handles POST /queries
// @Summary Ask an analytics question
// @Description Classify a free-text question, gather the matching platform data and narrate it
// @Tags queries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param query body dto.SubmitQueryRequest true "Question"
// @Success 200 {object} dto.QueryResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /queries [post]
func (h *Handler) submitQuery(c *gin.Context) {
	var req dto.SubmitQueryRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid query request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   string(domain.KindValidation),
			Message: err.Error(),
		})
		return
	}

	response, err := h.synthesisService.SubmitQuery(c.Request.Context(), req.Query)
	if err != nil {
		h.writeError(c, "Failed to answer query", err)
		return
	}

	h.log.Info("Query answered",
		zap.String("subject", c.GetString(subjectKey)),
		zap.String("query_id", response.ID),
		zap.String("query_type", response.QueryType),
		zap.Bool("from_cache", response.FromCache))

	c.JSON(http.StatusOK, response)
}

// invalidateQuery handles DELETE /queries/cache
// @Summary Invalidate a cached answer
// @Description Drop the cached answer for a question so the next ask recomputes it
// @Tags queries
// @Accept json
// @Security BearerAuth
// @Param query body dto.SubmitQueryRequest true "Question"
// @Success 204
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /queries/cache [delete]
func (h *Handler) invalidateQuery(c *gin.Context) {
	var req dto.SubmitQueryRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid invalidation request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   string(domain.KindValidation),
			Message: err.Error(),
		})
		return
	}

	if err := h.synthesisService.InvalidateQuery(c.Request.Context(), req.Query); err != nil {
		h.writeError(c, "Failed to invalidate query", err)
		return
	}

	h.log.Info("Query cache invalidated", zap.String("subject", c.GetString(subjectKey)))
	c.Status(http.StatusNoContent)
}

// getReport handles GET /reports
// @Summary Generate a report
// @Description Build (or serve from cache) a usage, agent performance, content analysis or comprehensive report
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param period query string true "Reporting window" example:"7days"
// @Param type query string false "Report type" Enums(usage, agent_performance, content_analysis, comprehensive)
// @Success 200 {object} domain.Report
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /reports [get]
func (h *Handler) getReport(c *gin.Context) {
	var req dto.GetReportRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid report request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   string(domain.KindValidation),
			Message: err.Error(),
		})
		return
	}

	report, err := h.synthesisService.GenerateReport(c.Request.Context(), req.Period, domain.ReportType(req.Type))
	if err != nil {
		h.writeError(c, "Failed to generate report", err)
		return
	}

	h.log.Info("Report served",
		zap.String("subject", c.GetString(subjectKey)),
		zap.String("period", report.Period),
		zap.String("report_type", string(report.ReportType)),
		zap.String("status", report.Status))

	c.JSON(http.StatusOK, report)
}

// writeError maps the error taxonomy onto HTTP statuses
func (h *Handler) writeError(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	kind := domain.KindOf(err)

	switch kind {
	case domain.KindAuthorization:
		status = http.StatusUnauthorized
		if errors.Is(err, auth.ErrForbidden) {
			status = http.StatusForbidden
		}
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindExternalService:
		status = http.StatusBadGateway
	default:
		kind = "internal_error"
	}

	message := err.Error()
	var derr *domain.Error
	if errors.As(err, &derr) {
		message = derr.Message
	}

	if status >= http.StatusInternalServerError {
		h.log.Error(msg, zap.Error(err), zap.Int("status", status))
	} else {
		h.log.Warn(msg, zap.Error(err), zap.Int("status", status))
	}

	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Error:   string(kind),
		Message: message,
	})
}
