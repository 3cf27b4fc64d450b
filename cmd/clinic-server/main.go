package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicore/clinicore/internal/auth"
	"github.com/clinicore/clinicore/internal/config"
	"github.com/clinicore/clinicore/internal/domain/appointment"
	"github.com/clinicore/clinicore/internal/domain/patient"
	"github.com/clinicore/clinicore/internal/domain/treatment"
	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/platform/middleware"
	"github.com/clinicore/clinicore/internal/platform/pii"
	"github.com/clinicore/clinicore/internal/tenant"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Multi-clinic records API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(keyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	piiKey, err := cfg.PIIKeyBytes()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid PII encryption key")
	}
	codec, err := pii.NewCodec(piiKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize field encryption")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Tenancy
	tenantStore := tenant.NewStorePG(pool)
	directory := tenant.NewDirectory(tenantStore)
	scopeMgr := db.NewScopeManager(pool)

	// Auth
	issuer := auth.NewTokenIssuer(
		[]byte(cfg.JWTSigningKey),
		cfg.JWTIssuer,
		time.Duration(cfg.TokenTTLMinutes)*time.Minute,
	)
	guard := auth.NewGuard(logger)
	userStore := auth.NewUserStorePG(pool)
	authHandler := auth.NewHandler(userStore, guard, issuer)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Every request resolves its clinic from the Host header before
	// anything else touches tenant state.
	e.Use(tenant.ResolveMiddleware(directory, logger))

	// Health check
	e.GET("/health", db.HealthHandler(pool))

	// Authenticated, schema-scoped API
	apiV1 := e.Group("/api/v1")
	apiV1.Use(auth.Middleware(issuer))
	apiV1.Use(tenant.ScopeMiddleware(scopeMgr))
	apiV1.Use(middleware.Audit(logger))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Login lives on the root router so it precedes the auth middleware.
	authHandler.RegisterRoutes(e, apiV1)

	// Clinical domains
	patientHandler := patient.NewHandler(patient.NewService(patient.NewRepo(pool, codec)))
	patientHandler.RegisterRoutes(apiV1)

	apptHandler := appointment.NewHandler(appointment.NewService(appointment.NewRepo(pool)))
	apptHandler.RegisterRoutes(apiV1)

	treatmentHandler := treatment.NewHandler(treatment.NewService(
		treatment.NewFindingRepo(pool), treatment.NewStepRepo(pool)))
	treatmentHandler.RegisterRoutes(apiV1)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			// Public schema first: the tenant directory must exist before
			// any clinic schema can be enumerated.
			publicMigrator := db.NewMigrator(pool, filepath.Join(cfg.MigrationsDir, "public"))
			count, err := publicMigrator.Up(ctx, tenant.PublicSchemaName)
			if err != nil {
				return fmt.Errorf("public migrations: %w", err)
			}
			fmt.Printf("public: applied %d migration(s)\n", count)

			// Then every clinic schema.
			store := tenant.NewStorePG(pool)
			tenants, err := store.ListTenants(ctx)
			if err != nil {
				return err
			}
			tenantMigrator := db.NewMigrator(pool, filepath.Join(cfg.MigrationsDir, "tenant"))
			for _, t := range tenants {
				if t.IsPublic() {
					continue
				}
				count, err := tenantMigrator.Up(ctx, t.SchemaName)
				if err != nil {
					return fmt.Errorf("migrations for %s: %w", t.SchemaName, err)
				}
				fmt.Printf("%s: applied %d migration(s)\n", t.SchemaName, count)
			}
			return nil
		},
	}
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			subset, _ := cmd.Flags().GetString("subset")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, filepath.Join(cfg.MigrationsDir, subset))
			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", tenant.PublicSchemaName, "Target schema")
	statusCmd.Flags().String("subset", "public", "Migrations subset (public or tenant)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func newTenantService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*tenant.Service, func(), error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	store := tenant.NewStorePG(pool)
	dir := tenant.NewDirectory(store)
	svc := tenant.NewService(store, dir, pool, filepath.Join(cfg.MigrationsDir, "tenant"), logger)
	return svc, pool.Close, nil
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage clinics",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Provision a new clinic",
		RunE: func(cmd *cobra.Command, args []string) error {
			slug, _ := cmd.Flags().GetString("slug")
			name, _ := cmd.Flags().GetString("name")
			hostname, _ := cmd.Flags().GetString("hostname")
			if slug == "" || hostname == "" {
				return fmt.Errorf("--slug and --hostname are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			svc, closePool, err := newTenantService(ctx, cfg, newLogger())
			if err != nil {
				return err
			}
			defer closePool()

			t, err := svc.CreateClinic(ctx, slug, name, hostname)
			if err != nil {
				return err
			}
			fmt.Printf("Created clinic %s (schema %s) at %s\n", t.Slug, t.SchemaName, hostname)
			return nil
		},
	}
	createCmd.Flags().String("slug", "", "Clinic identifier (lowercase, [a-z0-9_])")
	createCmd.Flags().String("name", "", "Display name")
	createCmd.Flags().String("hostname", "", "Hostname to bind, e.g. atlas.example.com")
	cmd.AddCommand(createCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List clinics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := tenant.NewStorePG(pool)
			tenants, err := store.ListTenants(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%-36s %-16s %-24s %-12s\n", "ID", "SLUG", "SCHEMA", "STATUS")
			for _, t := range tenants {
				fmt.Printf("%-36s %-16s %-24s %-12s\n", t.ID, t.Slug, t.SchemaName, t.Status)
			}
			return nil
		},
	}
	cmd.AddCommand(listCmd)

	retireCmd := &cobra.Command{
		Use:   "retire",
		Short: "Retire a clinic (keeps its data)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tenantBySlug(cmd, func(ctx context.Context, svc *tenant.Service, t *tenant.Tenant) error {
				if err := svc.Retire(ctx, t.ID); err != nil {
					return err
				}
				fmt.Printf("Retired clinic %s\n", t.Slug)
				return nil
			})
		},
	}
	retireCmd.Flags().String("slug", "", "Clinic identifier")
	cmd.AddCommand(retireCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Destroy a clinic and drop its schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tenantBySlug(cmd, func(ctx context.Context, svc *tenant.Service, t *tenant.Tenant) error {
				if err := svc.Destroy(ctx, t.ID); err != nil {
					return err
				}
				fmt.Printf("Destroyed clinic %s and dropped schema %s\n", t.Slug, t.SchemaName)
				return nil
			})
		},
	}
	deleteCmd.Flags().String("slug", "", "Clinic identifier")
	cmd.AddCommand(deleteCmd)

	return cmd
}

// tenantBySlug loads config, opens a pool, resolves --slug to a tenant and
// invokes fn with a provisioning service.
func tenantBySlug(cmd *cobra.Command, fn func(ctx context.Context, svc *tenant.Service, t *tenant.Tenant) error) error {
	slug, _ := cmd.Flags().GetString("slug")
	if slug == "" {
		return fmt.Errorf("--slug is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := tenant.NewStorePG(pool)
	t, err := store.GetTenantBySlug(ctx, slug)
	if err != nil {
		return err
	}
	dir := tenant.NewDirectory(store)
	svc := tenant.NewService(store, dir, pool, filepath.Join(cfg.MigrationsDir, "tenant"), newLogger())
	return fn(ctx, svc, t)
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			roleStr, _ := cmd.Flags().GetString("role")
			clinicSlug, _ := cmd.Flags().GetString("clinic")
			firstName, _ := cmd.Flags().GetString("first-name")
			lastName, _ := cmd.Flags().GetString("last-name")

			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			role, err := auth.ParseRole(roleStr)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			p := &auth.Principal{
				Username:  username,
				FirstName: firstName,
				LastName:  lastName,
				Role:      role,
			}
			if role != auth.RoleSuperuser {
				if clinicSlug == "" {
					return fmt.Errorf("--clinic is required for role %s", role)
				}
				t, err := tenant.NewStorePG(pool).GetTenantBySlug(ctx, clinicSlug)
				if err != nil {
					return err
				}
				p.TenantID = &t.ID
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			p.PasswordHash = hash

			if err := p.Validate(); err != nil {
				return err
			}
			if err := auth.NewUserStorePG(pool).Create(ctx, p); err != nil {
				return err
			}
			fmt.Printf("Created user %s (%s)\n", p.Username, p.Role)
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Login name")
	createCmd.Flags().String("password", "", "Initial password")
	createCmd.Flags().String("role", "DOCTOR", "Role: DOCTOR, ASSISTANT, ADMIN or SUPERUSER")
	createCmd.Flags().String("clinic", "", "Clinic slug (omit for SUPERUSER)")
	createCmd.Flags().String("first-name", "", "First name")
	createCmd.Flags().String("last-name", "", "Last name")
	cmd.AddCommand(createCmd)

	return cmd
}

func keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Key utilities",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Generate a PII encryption key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := make([]byte, 32)
			if _, err := crypto_rand.Read(key); err != nil {
				return err
			}
			fmt.Println(hex.EncodeToString(key))
			return nil
		},
	})

	return cmd
}
