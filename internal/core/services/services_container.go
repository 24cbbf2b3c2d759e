package services

import (
	"fmt"

	portsrepo "github.com/SscSPs/shope_lite/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/shope_lite/internal/core/ports/services"
	"github.com/SscSPs/shope_lite/internal/platform/config"
	"github.com/SscSPs/shope_lite/internal/utils"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// notifier may be nil when reset emails are not configured.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, notifier portssvc.ResetNotifier) (*portssvc.ServiceContainer, error) {
	tokens, err := NewSessionTokenService(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token service: %w", err)
	}

	hasher := utils.NewBcryptHasher(utils.DefaultPasswordCost)
	resets := NewResetTokenService(repos.UserRepo, hasher, nil)

	container := &portssvc.ServiceContainer{
		SessionToken: tokens,
		User:         NewUserService(repos.UserRepo, nil),
		GoogleOAuth:  NewGoogleOAuthService(cfg),
	}
	container.Auth = NewAuthService(
		AuthServiceConfig{FrontendBaseURL: cfg.FrontendBaseURL, DemoMode: cfg.ResetDemoMode},
		repos.UserRepo,
		hasher,
		tokens,
		resets,
		WithResetNotifier(notifier),
	)

	return container, nil
}
