// Command shope_admin changes a user's role out of band.
//
//	shope_admin -email alice@example.com -role admin
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/SscSPs/shope_lite/internal/core/domain"
	"github.com/SscSPs/shope_lite/internal/core/services"
	"github.com/SscSPs/shope_lite/internal/platform/config"
	"github.com/SscSPs/shope_lite/internal/repositories/database/pgsql"
	"github.com/SscSPs/shope_lite/pkg/database"
)

func main() {
	emailFlag := flag.String("email", "", "email of the user to update")
	roleFlag := flag.String("role", string(domain.RoleAdmin), "role to assign (user or admin)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(logger, *emailFlag, *roleFlag); err != nil {
		logger.Error("Role update failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, email, rawRole string) error {
	if email == "" {
		flag.Usage()
		return fmt.Errorf("-email is required")
	}
	role, ok := domain.ParseRole(rawRole)
	if !ok {
		return fmt.Errorf("unknown role %q", rawRole)
	}

	cfg, err := config.LoadStoreConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
		return err
	}
	pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer database.ClosePgxPool(pool, logger)

	userService := services.NewUserService(pgsql.NewRepositoryProvider(pool).UserRepo, nil)
	user, err := userService.SetRole(ctx, email, role)
	if err != nil {
		return err
	}

	logger.Info("Role updated", slog.String("user_id", user.UserID), slog.String("email", user.Email), slog.String("role", string(user.Role)))
	return nil
}
