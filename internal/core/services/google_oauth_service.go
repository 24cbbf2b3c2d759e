package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/shope_lite/internal/apperrors"
	"github.com/SscSPs/shope_lite/internal/core/domain"
	portssvc "github.com/SscSPs/shope_lite/internal/core/ports/services"
	"github.com/SscSPs/shope_lite/internal/platform/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

// idTokenValidator matches idtoken.Validate.
type idTokenValidator func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// googleOAuthService implements the GoogleOAuthSvc.
type googleOAuthService struct {
	oauth2Config *oauth2.Config
	validate     idTokenValidator
}

// NewGoogleOAuthService creates a Google sign-in service. It reports itself
// unconfigured when client credentials are missing.
func NewGoogleOAuthService(cfg *config.Config) portssvc.GoogleOAuthSvc {
	return newGoogleOAuthService(&oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}, idtoken.Validate)
}

func newGoogleOAuthService(oauthCfg *oauth2.Config, validate idTokenValidator) *googleOAuthService {
	return &googleOAuthService{oauth2Config: oauthCfg, validate: validate}
}

var _ portssvc.GoogleOAuthSvc = (*googleOAuthService)(nil)

func (s *googleOAuthService) IsConfigured() bool {
	return s.oauth2Config.ClientID != "" && s.oauth2Config.ClientSecret != ""
}

// ExchangeCodeForToken exchanges an OAuth authorization code for a token.
func (s *googleOAuthService) ExchangeCodeForToken(ctx context.Context, code string) (*oauth2.Token, error) {
	if !s.IsConfigured() {
		return nil, apperrors.ErrUnavailable
	}
	token, err := s.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange oauth code for token: %w", apperrors.ErrUnauthorized, err)
	}
	return token, nil
}

// ValidateIDToken validates the id_token returned alongside token.
func (s *googleOAuthService) ValidateIDToken(ctx context.Context, token *oauth2.Token) (*domain.GoogleUserInfo, error) {
	if !s.IsConfigured() {
		return nil, apperrors.ErrUnavailable
	}
	if token == nil {
		return nil, errors.New("oauth token is nil")
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: token response carried no id_token", apperrors.ErrUnauthorized)
	}

	payload, err := s.validate(ctx, rawIDToken, s.oauth2Config.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: google ID token validation failed: %w", apperrors.ErrUnauthorized, err)
	}

	info := &domain.GoogleUserInfo{Subject: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		info.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		info.Name = name
	}
	switch v := payload.Claims["email_verified"].(type) {
	case bool:
		info.EmailVerified = v
	case string:
		info.EmailVerified = v == "true"
	}
	return info, nil
}
