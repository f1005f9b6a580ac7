// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"github.com/videostreampro/adcore/app/dto"
	businessflow "github.com/videostreampro/adcore/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ImpressionHandlerInterface defines the contract for the public impression endpoints.
type ImpressionHandlerInterface interface {
	Confirm(c fiber.Ctx) error
	Lookup(c fiber.Ctx) error
}

// ImpressionHandler handles POST /impression/confirm and GET /impression/:token.
type ImpressionHandler struct {
	impressionFlow businessflow.ImpressionFlow
	validator      *validator.Validate
}

// NewImpressionHandler creates a new impression handler.
func NewImpressionHandler(impressionFlow businessflow.ImpressionFlow) *ImpressionHandler {
	return &ImpressionHandler{
		impressionFlow: impressionFlow,
		validator:      validator.New(),
	}
}

func (h *ImpressionHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: errorCode, Details: details},
	})
}

// Confirm handles the impression confirm event state machine, billing the
// "served" event (spec §4.8).
func (h *ImpressionHandler) Confirm(c fiber.Ctx) error {
	var req dto.ConfirmImpressionRequest
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

	if req.UserID != nil && req.AnonID != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Provide either user_id or anon_id, not both", "AMBIGUOUS_VIEWER", nil)
	}

	resp, err := h.impressionFlow.Confirm(c.Context(), &req)
	if err != nil {
		switch {
		case businessflow.IsInvalidImpressionToken(err), businessflow.IsImpressionNotFound(err):
			return h.ErrorResponse(c, fiber.StatusNotFound, "Unknown impression token", "TOKEN_NOT_FOUND", nil)
		case businessflow.IsImpressionExpired(err):
			return h.ErrorResponse(c, fiber.StatusGone, "Impression has expired", "IMPRESSION_EXPIRED", nil)
		case businessflow.IsImpressionNotConfirmable(err), businessflow.IsImpressionAlreadyServed(err),
			businessflow.IsImpressionNotServed(err), businessflow.IsInvalidStatusTransition(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid confirm transition", "INVALID_TRANSITION", nil)
		case businessflow.IsBudgetExceeded(err), businessflow.IsInsufficientBudget(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Ad or campaign budget would be exceeded", "BUDGET_EXCEEDED", nil)
		default:
			return h.ErrorResponse(c, fiber.StatusInternalServerError, "Billing failure", "CONFIRM_FAILED", nil)
		}
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// Lookup is the supplemental debug endpoint for inspecting an
// impression's reservation/confirmation state by token.
func (h *ImpressionHandler) Lookup(c fiber.Ctx) error {
	token := c.Params("token")
	if token == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Token is required", "MISSING_TOKEN", nil)
	}

	resp, err := h.impressionFlow.Lookup(c.Context(), token)
	if err != nil {
		if businessflow.IsInvalidImpressionToken(err) || businessflow.IsImpressionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Unknown impression token", "TOKEN_NOT_FOUND", nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lookup failed", "LOOKUP_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Impression found", Data: resp})
}
