package handler

import (
	"errors"
	"net/http"
	"strings"

	"cot-sentiment/internal/domain"
	"cot-sentiment/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ListCommodities godoc
// @Summary      List registered commodities
// @Tags         commodities
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/commodities [get]
func (h *Handler) ListCommodities(c *gin.Context) {
	list := h.pipeline.Commodities()
	c.JSON(http.StatusOK, gin.H{
		"count":       len(list),
		"commodities": list,
	})
}

// TriggerRun godoc
// @Summary      Run the sentiment pipeline for one commodity
// @Description  Fetches positioning and price data, builds features and evaluates every horizon
// @Tags         runs
// @Produce      json
// @Param        symbol  path  string  true  "Commodity symbol (e.g. GC)"
// @Success      200  {object}  domain.RunReport
// @Failure      404  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/runs/{symbol} [post]
func (h *Handler) TriggerRun(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-run",
		trace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()

	report, err := h.pipeline.Run(ctx, symbol)
	if err != nil {
		c.JSON(runErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func runErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownCommodity):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlignmentFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDataUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
