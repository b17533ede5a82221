package handler

import (
	"errors"
	"net/http"

	"offer-service/internal/service"
	"offer-service/pkg/logger"
	"offer-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// recordUpstreamOutcome counts a failed external call under its service label
func recordUpstreamOutcome(err error) {
	var uErr *service.UpstreamError
	if errors.As(err, &uErr) {
		prometheus.RecordUpstreamCall(uErr.Service, "failure")
	}
}

// writeError translates a service error into the HTTP response. Caller
// mistakes and unmet lifecycle preconditions map to 400, missing records to
// 404, failed external collaborators to 502 and everything else to 500.
func writeError(c echo.Context, err error) error {
	log := logger.FromContext(c)

	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": vErr.Reason})
	}

	var pErr *service.PreconditionError
	if errors.As(err, &pErr) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": pErr.Reason})
	}

	if errors.Is(err, service.ErrInvalidID) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid offer ID format"})
	}

	if errors.Is(err, service.ErrOfferNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Offer not found"})
	}

	if errors.Is(err, service.ErrCompanyNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Company not found"})
	}

	var uErr *service.UpstreamError
	if errors.As(err, &uErr) {
		log.Error("Upstream service failure",
			zap.String("service", uErr.Service),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": uErr.Error()})
	}

	log.Error("Unhandled service error", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
}
