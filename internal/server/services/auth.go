// Package services contains server-side business logic: wallet login and
// owner-checked access to the file_hashes table.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/cryptox"
	"github.com/dmitrijs2005/docverify/internal/server/auth"
	"github.com/dmitrijs2005/docverify/internal/server/config"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Token is an issued access token.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// AuthService exchanges a signed login challenge for an access token.
type AuthService struct {
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	loginWindow                 time.Duration
	now                         func() time.Time
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		loginWindow:                 cfg.LoginWindow,
		now:                         time.Now,
	}
}

// Login verifies that signature is address's EIP-191 signature over message
// and that the message is fresh.
func (s *AuthService) Login(ctx context.Context, address, message string, signature []byte) (*Token, error) {
	if !ethcommon.IsHexAddress(address) {
		return nil, fmt.Errorf("bad address %q: %w", address, common.ErrorUnauthorized)
	}

	now := s.now()
	if err := cryptox.VerifyLogin(ethcommon.HexToAddress(address), message, signature, now, s.loginWindow); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	tok, exp, err := auth.GenerateToken(address, s.jwtSecret, s.accessTokenValidityDuration, now)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{AccessToken: tok, ExpiresAt: exp}, nil
}

// Authenticate returns the address a token was issued to.
func (s *AuthService) Authenticate(token string) (string, error) {
	return auth.AddressFromToken(token, s.jwtSecret)
}
