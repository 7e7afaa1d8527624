package services

import (
	"errors"
	"fmt"
	"time"

	"agrichain/internal/models"

	"github.com/dgrijalva/jwt-go"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// TokenService validates the bearer tokens wallet sessions carry. Tokens are
// minted upstream after a wallet signature; IssueToken exists for the demo
// seed and tests.
type TokenService struct {
	jwtSecret  []byte
	tokenDurat time.Duration
}

// NewTokenService creates a new TokenService.
func NewTokenService(jwtSecret string) *TokenService {
	return &TokenService{
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
	}
}

// IssueToken signs a session token for address.
func (s *TokenService) IssueToken(address string) (string, error) {
	addr, err := models.NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"address": addr,
		"exp":     time.Now().Add(s.tokenDurat).Unix(),
		"iat":     time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses a token and returns the normalized address it was issued to.
func (s *TokenService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	raw, _ := claims["address"].(string)
	addr, err := models.NormalizeAddress(raw)
	if err != nil {
		return "", fmt.Errorf("%w: address claim: %v", ErrInvalidToken, err)
	}
	return addr, nil
}
