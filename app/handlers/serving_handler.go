// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"errors"

	"github.com/videostreampro/adcore/app/dto"
	businessflow "github.com/videostreampro/adcore/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ServingHandlerInterface defines the contract for the public ad-serving endpoint.
type ServingHandlerInterface interface {
	ServeAd(c fiber.Ctx) error
}

// ServingHandler handles POST /ad/serve.
type ServingHandler struct {
	adServerFlow businessflow.AdServerFlow
	validator    *validator.Validate
}

// NewServingHandler creates a new serving handler.
func NewServingHandler(adServerFlow businessflow.AdServerFlow) *ServingHandler {
	return &ServingHandler{
		adServerFlow: adServerFlow,
		validator:    validator.New(),
	}
}

func (h *ServingHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: errorCode, Details: details},
	})
}

// ServeAd handles the ad-serve request, scoring and reserving an
// impression for an eligible candidate (spec §4.7).
func (h *ServingHandler) ServeAd(c fiber.Ctx) error {
	var req dto.ServeAdRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	req.UserAgent = c.Get("User-Agent")
	req.IPAddress = c.IP()

	resp, err := h.adServerFlow.ServeAd(c.Context(), &req)
	if err != nil {
		var bizErr *businessflow.BusinessError
		if errors.As(err, &bizErr) && bizErr.Code == "SERVE_VALIDATION_FAILED" {
			return h.ErrorResponse(c, fiber.StatusBadRequest, bizErr.Error(), "INVALID_SERVE_REQUEST", nil)
		}
		if businessflow.IsNoEligibleCandidates(err) || businessflow.IsReserveAttemptsExhausted(err) {
			return c.Status(fiber.StatusOK).JSON(dto.NoAdResponse{Reason: "no_eligible_ads"})
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Ad serving failed", "SERVE_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}
