package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/lakbay/lakbay/internal/config"
	"github.com/lakbay/lakbay/internal/domain/cases"
	"github.com/lakbay/lakbay/internal/domain/dashboard"
	"github.com/lakbay/lakbay/internal/domain/reports"
	"github.com/lakbay/lakbay/internal/domain/users"
	"github.com/lakbay/lakbay/internal/platform/auth"
	"github.com/lakbay/lakbay/internal/platform/db"
	"github.com/lakbay/lakbay/internal/platform/middleware"
)

func main() {
	root := &cobra.Command{
		Use:   "lakbay-server",
		Short: "Pulmonary nodule case tracking API server",
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedAdminCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			issuer := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL())

			// Repositories
			caseRepo := cases.NewRepoPG(pool)
			archiveRepo := cases.NewArchiveRepoPG(pool)
			userRepo := users.NewRepoPG(pool)

			// Services
			caseSvc := cases.NewService(caseRepo, archiveRepo)
			userSvc := users.NewService(userRepo, caseRepo, issuer, users.Superuser{
				Email:    cfg.AdminEmail,
				Password: cfg.AdminPassword,
			})
			dashSvc := dashboard.NewService(caseSvc, userSvc)
			reportSvc := reports.NewService(caseRepo)

			e := echo.New()
			e.HideBanner = true
			e.Use(middleware.RequestID())
			e.Use(middleware.Logger(logger))
			e.Use(middleware.Recovery(logger))
			e.Use(middleware.SecurityHeaders())
			e.Use(middleware.BodyLimit(cfg.BodyLimit))
			e.Use(middleware.RequestTimeout(cfg.RequestTimeout()))
			e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
				AllowOrigins: cfg.CORSOrigins,
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
			}))
			// Auth must precede the audit and rate-limit layers: audit
			// entries record the authenticated user, and rate limiting is
			// keyed per user. Public paths pass through via the skipper.
			e.Use(auth.Middleware(issuer, auth.AuthSkipper))
			e.Use(middleware.Audit(logger))
			e.Use(middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerSecond: cfg.RateLimitRPS,
				BurstSize:         cfg.RateLimitBurst,
			}))

			e.GET("/health", db.HealthHandler(pool))

			public := e.Group("/api/v1")
			api := e.Group("/api/v1")

			users.NewHandler(userSvc).RegisterRoutes(public, api)
			cases.NewHandler(caseSvc).RegisterRoutes(api)
			dashboard.NewHandler(dashSvc).RegisterRoutes(api)
			reports.NewHandler(reportSvc).RegisterRoutes(api)

			// Graceful shutdown
			go func() {
				quit := make(chan os.Signal, 1)
				signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
				<-quit
				logger.Info().Msg("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := e.Shutdown(shutdownCtx); err != nil {
					logger.Error().Err(err).Msg("shutdown")
				}
			}()

			logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
			if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	migrate.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				n, err := m.Up(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("applied %d migration(s)\n", n)
				return nil
			})
		},
	})

	migrate.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return err
				}
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied " + s.AppliedAt.Format(time.RFC3339)
					}
					fmt.Printf("%03d %-40s %s\n", s.Version, s.Name, state)
				}
				return nil
			})
		},
	})

	return migrate
}

func withMigrator(ctx context.Context, fn func(context.Context, *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, db.NewMigrator(pool, cfg.MigrationsDir))
}

// seedAdminCmd creates the approved bootstrap admin ahead of first
// sign-in, for deployments that prefer explicit seeding.
func seedAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the bootstrap admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
				return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
			}

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			repo := users.NewRepoPG(pool)
			return db.RunInTx(ctx, pool, func(ctx context.Context) error {
				if _, err := repo.GetByEmail(ctx, users.RoleAdmin, cfg.AdminEmail); err == nil {
					fmt.Println("admin account already exists")
					return nil
				}

				hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
				if err != nil {
					return err
				}
				admin := &users.User{
					Role:         users.RoleAdmin,
					Email:        cfg.AdminEmail,
					PasswordHash: string(hash),
					FullName:     "Administrator",
					Approved:     true,
				}
				if err := repo.Create(ctx, admin); err != nil {
					return err
				}
				fmt.Printf("created admin %s\n", cfg.AdminEmail)
				return nil
			})
		},
	}
}
