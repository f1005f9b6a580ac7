// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"github.com/videostreampro/adcore/app/dto"
	businessflow "github.com/videostreampro/adcore/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AdHandlerInterface defines the contract for ad CRUD handlers.
type AdHandlerInterface interface {
	CreateAd(c fiber.Ctx) error
	UpdateAd(c fiber.Ctx) error
	DeleteAd(c fiber.Ctx) error
}

// AdHandler handles ad lifecycle HTTP requests (spec §4.9).
type AdHandler struct {
	adFlow    businessflow.AdFlow
	validator *validator.Validate
}

// NewAdHandler creates a new ad handler.
func NewAdHandler(adFlow businessflow.AdFlow) *AdHandler {
	return &AdHandler{
		adFlow:    adFlow,
		validator: validator.New(),
	}
}

func (h *AdHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: errorCode, Details: details},
	})
}

func (h *AdHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

func (h *AdHandler) mapError(c fiber.Ctx, err error, failMessage, failCode string) error {
	switch {
	case businessflow.IsCampaignNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
	case businessflow.IsCampaignAccessDenied(err):
		return h.ErrorResponse(c, fiber.StatusForbidden, "Campaign access denied", "CAMPAIGN_ACCESS_DENIED", nil)
	case businessflow.IsAdNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Ad not found", "AD_NOT_FOUND", nil)
	case businessflow.IsAdAccessDenied(err):
		return h.ErrorResponse(c, fiber.StatusForbidden, "Ad access denied", "AD_ACCESS_DENIED", nil)
	case businessflow.IsAdUpdateNotAllowed(err):
		return h.ErrorResponse(c, fiber.StatusConflict, "Ad is not in a modifiable state", "AD_STATE_CONFLICT", nil)
	case businessflow.IsBudgetExceeded(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Ad or campaign budget would be exceeded", "BUDGET_EXCEEDED", nil)
	case businessflow.IsInsufficientBudget(err):
		return h.ErrorResponse(c, fiber.StatusPaymentRequired, "Requested budget exceeds the campaign's remaining allocation", "INSUFFICIENT_BUDGET", nil)
	case businessflow.IsAdTitleRequired(err), businessflow.IsAdUUIDRequired(err), businessflow.IsInvalidStatusTransition(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_AD_REQUEST", nil)
	default:
		return h.ErrorResponse(c, fiber.StatusInternalServerError, failMessage, failCode, nil)
	}
}

// CreateAd handles POST /teams/:team/campaigns/:campaign/ads.
func (h *AdHandler) CreateAd(c fiber.Ctx) error {
	teamID, err := teamIDFromRoute(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid team ID", "INVALID_TEAM_ID", nil)
	}

	var req dto.CreateAdRequest
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
	req.TeamID = teamID
	req.CampaignUUID = c.Params("campaign")

	result, err := h.adFlow.CreateAd(c.Context(), &req)
	if err != nil {
		return h.mapError(c, err, "Ad creation failed", "AD_CREATION_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Ad created successfully", result)
}

// UpdateAd handles PUT /teams/:team/campaigns/:campaign/ads/:ad.
func (h *AdHandler) UpdateAd(c fiber.Ctx) error {
	teamID, err := teamIDFromRoute(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid team ID", "INVALID_TEAM_ID", nil)
	}

	var req dto.UpdateAdRequest
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
	req.TeamID = teamID
	req.CampaignUUID = c.Params("campaign")
	req.UUID = c.Params("ad")

	result, err := h.adFlow.UpdateAd(c.Context(), &req)
	if err != nil {
		return h.mapError(c, err, "Ad update failed", "AD_UPDATE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Ad updated successfully", result)
}

// DeleteAd handles DELETE /teams/:team/campaigns/:campaign/ads/:ad,
// hard-deleting the ad and freeing its budget allocation back to the
// campaign pool (spec §3/§4.9).
func (h *AdHandler) DeleteAd(c fiber.Ctx) error {
	teamID, err := teamIDFromRoute(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid team ID", "INVALID_TEAM_ID", nil)
	}

	req := dto.DeleteAdRequest{
		TeamID:       teamID,
		CampaignUUID: c.Params("campaign"),
		UUID:         c.Params("ad"),
	}
	result, err := h.adFlow.DeleteAd(c.Context(), &req)
	if err != nil {
		return h.mapError(c, err, "Ad deletion failed", "AD_DELETION_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Ad deleted successfully", result)
}
