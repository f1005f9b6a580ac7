// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/videostreampro/adcore/app/dto"
	"github.com/videostreampro/adcore/app/services"
	"github.com/videostreampro/adcore/internal/cache"
	"github.com/gofiber/fiber/v3"
)

// AuthMiddleware validates bearer tokens issued by the external auth
// system this core trusts but doesn't implement (no SSO here — see
// services.TokenService). A validated claims cache fronts ValidateToken:
// a cache hit skips ValidateToken but still calls IsTokenRevoked, which
// parses the token and verifies its RSA signature again. Entries are
// invalidated on logout/revocation; the cache is never authoritative.
type AuthMiddleware struct {
	tokenService services.TokenService
	claimsCache  *cache.TTLCache
}

// NewAuthMiddleware creates a new authentication middleware. claimsCache
// may be nil, in which case every request re-validates the token.
func NewAuthMiddleware(tokenService services.TokenService, claimsCache *cache.TTLCache) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		claimsCache:  claimsCache,
	}
}

func (m *AuthMiddleware) validate(c fiber.Ctx, token string) (*services.TokenClaims, error) {
	if m.claimsCache != nil {
		var cached services.TokenClaims
		if m.claimsCache.Get(c.Context(), token, &cached) {
			if m.tokenService.IsTokenRevoked(token) {
				m.claimsCache.Invalidate(c.Context(), token)
				return nil, services.ErrTokenRevoked
			}
			return &cached, nil
		}
	}

	claims, err := m.tokenService.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if m.claimsCache != nil {
		m.claimsCache.Set(c.Context(), token, claims)
	}
	return claims, nil
}

// Authenticate is the middleware function that validates bearer tokens.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Authorization header is required",
				Error: dto.ErrorDetail{
					Code: "MISSING_AUTHORIZATION_HEADER",
				},
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Invalid authorization header format. Expected 'Bearer <token>'",
				Error: dto.ErrorDetail{
					Code: "INVALID_AUTHORIZATION_FORMAT",
				},
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Access token is required",
				Error: dto.ErrorDetail{
					Code: "MISSING_ACCESS_TOKEN",
				},
			})
		}

		claims, err := m.validate(c, token)
		if err != nil {
			var errorCode string
			var message string

			if errors.Is(err, services.ErrTokenExpired) {
				errorCode = "TOKEN_EXPIRED"
				message = "Access token has expired"
			} else if errors.Is(err, services.ErrTokenInvalid) {
				errorCode = "TOKEN_INVALID"
				message = "Invalid access token"
			} else if errors.Is(err, services.ErrTokenRevoked) {
				errorCode = "TOKEN_REVOKED"
				message = "Access token has been revoked"
			} else {
				errorCode = "TOKEN_VALIDATION_FAILED"
				message = "Token validation failed"
			}

			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: message,
				Error: dto.ErrorDetail{
					Code: errorCode,
				},
			})
		}

		c.Locals("team_id", claims.TeamID)
		c.Locals("user_id", claims.UserID)
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)
		c.Locals("raw_token", token)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// OptionalAuth validates bearer tokens if present, but doesn't require them.
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Next()
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Next()
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Next()
		}

		claims, err := m.validate(c, token)
		if err != nil {
			return c.Next()
		}

		c.Locals("team_id", claims.TeamID)
		c.Locals("user_id", claims.UserID)
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)
		c.Locals("raw_token", token)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// Logout invalidates the caller's bearer token, revoking it at the token
// service and dropping any cached claims for it.
func (m *AuthMiddleware) Logout() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := c.Locals("raw_token").(string)
		if !ok || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Authentication required",
				Error:   dto.ErrorDetail{Code: "AUTHENTICATION_REQUIRED"},
			})
		}

		if err := m.tokenService.RevokeToken(token); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{
				Success: false,
				Message: "Failed to revoke token",
				Error:   dto.ErrorDetail{Code: "REVOCATION_FAILED"},
			})
		}
		if m.claimsCache != nil {
			m.claimsCache.Invalidate(c.Context(), token)
		}

		return c.JSON(dto.APIResponse{Success: true, Message: "Logged out"})
	}
}

// GetTeamIDFromContext extracts the authenticated team ID from the request context.
func GetTeamIDFromContext(c fiber.Ctx) (uint, bool) {
	teamID, ok := c.Locals("team_id").(uint)
	return teamID, ok
}

// GetUserIDFromContext extracts the authenticated user ID from the request context.
func GetUserIDFromContext(c fiber.Ctx) (uint, bool) {
	userID, ok := c.Locals("user_id").(uint)
	return userID, ok
}

// GetTokenClaimsFromContext extracts token claims from the request context.
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.TokenClaims, bool) {
	claims, ok := c.Locals("token_claims").(*services.TokenClaims)
	return claims, ok
}

// RequireAuth is a helper function that ensures authentication is required.
func RequireAuth(c fiber.Ctx) error {
	teamID, exists := GetTeamIDFromContext(c)
	if !exists {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
			Success: false,
			Message: "Authentication required",
			Error: dto.ErrorDetail{
				Code: "AUTHENTICATION_REQUIRED",
			},
		})
	}

	if teamID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
			Success: false,
			Message: "Invalid team ID",
			Error: dto.ErrorDetail{
				Code: "INVALID_TEAM_ID",
			},
		})
	}

	return nil
}
