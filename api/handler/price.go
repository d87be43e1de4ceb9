package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rekat/price-server/api/middleware"
	"github.com/rekat/price-server/extractor"
	"github.com/rekat/price-server/fetcher"
	"github.com/rekat/price-server/models"
	"github.com/rekat/price-server/observability"
)

// Lookup outcomes recorded in price_lookups_total.
const (
	outcomeFound       = "found"
	outcomeEmpty       = "empty"
	outcomePassthrough = "passthrough"
)

// Price returns a handler for GET /api/price?code=<code>.
//
// Orchestration flow:
//  1. Reject a missing/empty code with 400 before any outbound call.
//  2. Fetcher.Fetch   → raw upstream reply (one call, bounded timeout).
//  3. Extractor.Extract → passthrough wrapper or product envelope.
//  4. Map errors to 504/502/500, otherwise reply 200.
func Price(f fetcher.Fetcher, ex extractor.Extractor, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Query("code")
		if code == "" {
			respondError(c, models.NewPriceError(models.ErrCodeInvalidInput, "Code parameter is required", nil))
			return
		}

		log := slog.With(
			"request_id", middleware.GetRequestID(c),
			"target", f.Name(),
			"code", code,
		)

		raw, err := f.Fetch(c.Request.Context(), code)
		if err != nil {
			log.Warn("price lookup failed", "error", err)
			m.Lookups.WithLabelValues(f.Name(), outcomeOf(err)).Inc()
			respondError(c, err)
			return
		}
		m.UpstreamDuration.WithLabelValues(f.Name()).Observe(raw.Duration.Seconds())

		res, err := ex.Extract(raw)
		if err != nil {
			log.Warn("price extraction failed", "status", raw.StatusCode, "error", err)
			m.Lookups.WithLabelValues(f.Name(), outcomeOf(err)).Inc()
			respondError(c, err)
			return
		}

		outcome := outcomePassthrough
		if env, ok := res.(*models.ResultEnvelope); ok {
			outcome = outcomeEmpty
			if env.Success {
				outcome = outcomeFound
			}
			if env.Skipped > 0 {
				m.SkippedCards.Add(float64(env.Skipped))
			}
			log.Info("price lookup done", "count", env.Count, "skipped", env.Skipped)
		} else {
			log.Info("price lookup done", "status", raw.StatusCode)
		}
		m.Lookups.WithLabelValues(f.Name(), outcome).Inc()

		c.JSON(http.StatusOK, res)
	}
}

// respondError maps a PriceError to the correct HTTP status code and
// writes {"error": "<message>"}.
func respondError(c *gin.Context, err error) {
	var priceErr *models.PriceError
	if !errors.As(err, &priceErr) {
		priceErr = models.NewPriceError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(priceErr), priceErr.ToResponse())
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.PriceError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeUpstreamUnavailable:
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

func outcomeOf(err error) string {
	var priceErr *models.PriceError
	if errors.As(err, &priceErr) {
		return priceErr.Code
	}
	return models.ErrCodeInternal
}
