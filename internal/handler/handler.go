package handler

import (
	"context"

	"cot-sentiment/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// PipelineRunner runs the sentiment pipeline for registered commodities.
type PipelineRunner interface {
	Run(ctx context.Context, symbol string) (*domain.RunReport, error)
	Commodities() []domain.Commodity
}

type Handler struct {
	tracer   trace.Tracer
	pipeline PipelineRunner
}

func New(tracer trace.Tracer, pipeline PipelineRunner) *Handler {
	return &Handler{
		tracer:   tracer,
		pipeline: pipeline,
	}
}

// RegisterRoutes mounts the public routes and puts run triggers behind
// APIKeyAuth.
func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)
	r.GET("/api/commodities", h.ListCommodities)

	protected := r.Group("/api", APIKeyAuth(apiKey))
	protected.POST("/runs/:symbol", h.TriggerRun)
}
