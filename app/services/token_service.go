// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token service error constants
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// TokenService validates bearer tokens for the team-scoped management
// routes. Per spec §1's non-goals, the core doesn't implement SSO or
// issue the production tokens its external auth system mints — it only
// verifies an RS256-signed bearer token and trusts the team_id/user_id
// claims it carries. GenerateTokens/RefreshToken exist for local tooling
// and tests that need to mint tokens this verifier will accept.
type TokenService interface {
	GenerateTokens(teamID, userID uint) (accessToken, refreshToken string, err error)
	ValidateToken(token string) (*TokenClaims, error)
	RefreshToken(refreshToken string) (newAccessToken, newRefreshToken string, err error)
	RevokeToken(token string) error
	IsTokenRevoked(token string) bool
}

// TokenClaims represents the claims in a JWT bearer token.
type TokenClaims struct {
	TeamID    uint      `json:"team_id"`
	UserID    uint      `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenType string    `json:"token_type"` // "access" or "refresh"
	TokenID   string    `json:"jti"`
}

// TokenServiceImpl implements TokenService.
type TokenServiceImpl struct {
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	signingMethod   jwt.SigningMethod
	privateKey      *rsa.PrivateKey
	publicKey       *rsa.PublicKey
	issuer          string
	audience        string
	revoked         map[string]struct{}
}

// NewTokenService creates a new token service.
func NewTokenService(accessTokenTTL, refreshTokenTTL time.Duration, issuer, audience string) (TokenService, error) {
	privateKey, publicKey, err := loadOrGenerateRSAKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to load/generate RSA keys: %w", err)
	}

	return &TokenServiceImpl{
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
		signingMethod:   jwt.SigningMethodRS256,
		privateKey:      privateKey,
		publicKey:       publicKey,
		issuer:          issuer,
		audience:        audience,
		revoked:         make(map[string]struct{}),
	}, nil
}

// loadOrGenerateRSAKeys loads existing RSA keys or generates new ones.
func loadOrGenerateRSAKeys() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateKeyPath := "jwt_private.pem"
	publicKeyPath := "jwt_public.pem"

	if privateKeyBytes, err := os.ReadFile(privateKeyPath); err == nil {
		if publicKeyBytes, err := os.ReadFile(publicKeyPath); err == nil {
			privateKeyBlock, _ := pem.Decode(privateKeyBytes)
			if privateKeyBlock == nil {
				return nil, nil, fmt.Errorf("failed to decode private key")
			}
			privateKey, err := x509.ParsePKCS1PrivateKey(privateKeyBlock.Bytes)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to parse private key: %w", err)
			}

			publicKeyBlock, _ := pem.Decode(publicKeyBytes)
			if publicKeyBlock == nil {
				return nil, nil, fmt.Errorf("failed to decode public key")
			}
			publicKey, err := x509.ParsePKIXPublicKey(publicKeyBlock.Bytes)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to parse public key: %w", err)
			}
			rsaPublicKey, ok := publicKey.(*rsa.PublicKey)
			if !ok {
				return nil, nil, fmt.Errorf("public key is not RSA")
			}
			return privateKey, rsaPublicKey, nil
		}
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	if err := os.WriteFile(privateKeyPath, privateKeyPEM, 0600); err != nil {
		return nil, nil, fmt.Errorf("failed to save private key: %w", err)
	}

	publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	publicKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicKeyBytes,
	})
	if err := os.WriteFile(publicKeyPath, publicKeyPEM, 0644); err != nil {
		return nil, nil, fmt.Errorf("failed to save public key: %w", err)
	}

	return privateKey, &privateKey.PublicKey, nil
}

// GenerateTokens mints an access/refresh pair carrying team_id/user_id.
func (s *TokenServiceImpl) GenerateTokens(teamID, userID uint) (accessToken, refreshToken string, err error) {
	now := time.Now()

	accessTokenID, err := generateTokenID()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token ID: %w", err)
	}
	refreshTokenID, err := generateTokenID()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token ID: %w", err)
	}

	accessClaims := jwt.MapClaims{
		"team_id":    teamID,
		"user_id":    userID,
		"token_type": "access",
		"jti":        accessTokenID,
		"iat":        now.Unix(),
		"exp":        now.Add(s.accessTokenTTL).Unix(),
		"iss":        s.issuer,
		"aud":        s.audience,
	}
	accessToken, err = s.generateToken(accessClaims)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshClaims := jwt.MapClaims{
		"team_id":    teamID,
		"user_id":    userID,
		"token_type": "refresh",
		"jti":        refreshTokenID,
		"iat":        now.Unix(),
		"exp":        now.Add(s.refreshTokenTTL).Unix(),
		"iss":        s.issuer,
		"aud":        s.audience,
	}
	refreshToken, err = s.generateToken(refreshClaims)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// ValidateToken validates a JWT bearer token and returns its claims.
func (s *TokenServiceImpl) ValidateToken(token string) (*TokenClaims, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.publicKey, nil
	})
	if err != nil {
		if strings.Contains(err.Error(), "expired") || strings.Contains(err.Error(), "exp") {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsedToken.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	teamID, ok := claims["team_id"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}
	tokenType, ok := claims["token_type"].(string)
	if !ok {
		return nil, ErrTokenInvalid
	}
	tokenID, ok := claims["jti"].(string)
	if !ok {
		return nil, ErrTokenInvalid
	}
	issuedAt, ok := claims["iat"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}
	expiresAt, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}

	if time.Now().After(time.Unix(int64(expiresAt), 0)) {
		return nil, ErrTokenExpired
	}
	if s.IsTokenRevoked(token) {
		return nil, ErrTokenRevoked
	}

	return &TokenClaims{
		TeamID:    uint(teamID),
		UserID:    uint(userID),
		TokenType: tokenType,
		TokenID:   tokenID,
		IssuedAt:  time.Unix(int64(issuedAt), 0),
		ExpiresAt: time.Unix(int64(expiresAt), 0),
	}, nil
}

// RefreshToken mints a new access/refresh pair from a valid refresh token.
func (s *TokenServiceImpl) RefreshToken(refreshToken string) (newAccessToken, newRefreshToken string, err error) {
	claims, err := s.ValidateToken(refreshToken)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}
	if claims.TokenType != "refresh" {
		return "", "", fmt.Errorf("token is not a refresh token")
	}
	return s.GenerateTokens(claims.TeamID, claims.UserID)
}

// RevokeToken adds a token's ID to the in-process revocation set. A
// restart clears it; callers relying on durable revocation across
// restarts should front this with the internal/cache Redis-backed store.
func (s *TokenServiceImpl) RevokeToken(token string) error {
	claims, err := s.parseWithoutRevocationCheck(token)
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	s.revoked[claims.TokenID] = struct{}{}
	return nil
}

// IsTokenRevoked reports whether token's ID is in the revocation set.
func (s *TokenServiceImpl) IsTokenRevoked(token string) bool {
	claims, err := s.parseWithoutRevocationCheck(token)
	if err != nil {
		return false
	}
	_, revoked := s.revoked[claims.TokenID]
	return revoked
}

// parseWithoutRevocationCheck parses and signature-verifies a token
// without consulting the revocation set, avoiding infinite recursion from
// ValidateToken.
func (s *TokenServiceImpl) parseWithoutRevocationCheck(token string) (*TokenClaims, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return s.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	tokenID, ok := claims["jti"].(string)
	if !ok {
		return nil, ErrTokenInvalid
	}
	return &TokenClaims{TokenID: tokenID}, nil
}

func (s *TokenServiceImpl) generateToken(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(s.signingMethod, claims)
	return token.SignedString(s.privateKey)
}

func generateTokenID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", bytes), nil
}
