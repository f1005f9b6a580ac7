// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"strconv"

	"github.com/videostreampro/adcore/app/dto"
	businessflow "github.com/videostreampro/adcore/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// CampaignHandlerInterface defines the contract for campaign CRUD handlers.
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	UpdateCampaign(c fiber.Ctx) error
	DeleteCampaign(c fiber.Ctx) error
}

// CampaignHandler handles campaign lifecycle HTTP requests (spec §4.9).
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	validator    *validator.Validate
}

// NewCampaignHandler creates a new campaign handler.
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		validator:    validator.New(),
	}
}

func (h *CampaignHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: errorCode, Details: details},
	})
}

func (h *CampaignHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

func teamIDFromRoute(c fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("team"), 10, 64)
	return uint(id), err
}

func (h *CampaignHandler) mapError(c fiber.Ctx, err error, failMessage, failCode string) error {
	switch {
	case businessflow.IsCampaignNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
	case businessflow.IsCampaignAccessDenied(err):
		return h.ErrorResponse(c, fiber.StatusForbidden, "Campaign access denied", "CAMPAIGN_ACCESS_DENIED", nil)
	case businessflow.IsCampaignUpdateNotAllowed(err), businessflow.IsCampaignNotDeletable(err):
		return h.ErrorResponse(c, fiber.StatusConflict, "Campaign is not in a modifiable state", "CAMPAIGN_STATE_CONFLICT", nil)
	case businessflow.IsCampaignTitleRequired(err), businessflow.IsCampaignUUIDRequired(err),
		businessflow.IsStartDateAfterEndDate(err), businessflow.IsStartDateInPast(err),
		businessflow.IsInvalidStatusTransition(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_CAMPAIGN_REQUEST", nil)
	case businessflow.IsInsufficientFunds(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Insufficient wallet balance for this budget", "INSUFFICIENT_FUNDS", nil)
	default:
		return h.ErrorResponse(c, fiber.StatusInternalServerError, failMessage, failCode, nil)
	}
}

// CreateCampaign handles POST /teams/:team/campaigns.
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	teamID, err := teamIDFromRoute(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid team ID", "INVALID_TEAM_ID", nil)
	}

	var req dto.CreateCampaignRequest
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

	result, err := h.campaignFlow.CreateCampaign(c.Context(), &req)
	if err != nil {
		return h.mapError(c, err, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// UpdateCampaign handles PUT /teams/:team/campaigns/:campaign.
func (h *CampaignHandler) UpdateCampaign(c fiber.Ctx) error {
	teamID, err := teamIDFromRoute(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid team ID", "INVALID_TEAM_ID", nil)
	}

	var req dto.UpdateCampaignRequest
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
	req.UUID = c.Params("campaign")

	result, err := h.campaignFlow.UpdateCampaign(c.Context(), &req)
	if err != nil {
		return h.mapError(c, err, "Campaign update failed", "CAMPAIGN_UPDATE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaign updated successfully", result)
}

// DeleteCampaign handles DELETE /teams/:team/campaigns/:campaign, hard
// deleting the campaign and cascading to its ads/impressions, refunding
// any unspent budget to the team owner's wallet (spec §4.9).
func (h *CampaignHandler) DeleteCampaign(c fiber.Ctx) error {
	teamID, err := teamIDFromRoute(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid team ID", "INVALID_TEAM_ID", nil)
	}

	req := dto.DeleteCampaignRequest{TeamID: teamID, UUID: c.Params("campaign")}
	result, err := h.campaignFlow.DeleteCampaign(c.Context(), &req)
	if err != nil {
		return h.mapError(c, err, "Campaign deletion failed", "CAMPAIGN_DELETION_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaign deleted successfully", result)
}
