// Package main provisions the deployment's tenants and users. Tenants and
// accounts are not self-service: this command is the only way they are
// created. Re-running it is safe; existing rows are left untouched.
package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/notevault/backend/config"
	"github.com/notevault/backend/internal/auth"
	"github.com/notevault/backend/internal/models"
	"github.com/notevault/backend/internal/tenants"
	"github.com/notevault/backend/pkg/database"
	"github.com/notevault/backend/pkg/utils"
)

type seedTenant struct {
	Slug      string
	Name      string
	Plan      models.Plan
	NoteQuota int
}

type seedUser struct {
	TenantSlug string
	Email      string
	Role       models.Role
}

// The deployment's fixed allowed tenant set. Slugs are immutable after creation.
var seedTenants = []seedTenant{
	{Slug: "acme", Name: "Acme Corp", Plan: models.PlanFree, NoteQuota: 3},
	{Slug: "globex", Name: "Globex Inc", Plan: models.PlanPro, NoteQuota: models.UnlimitedQuota},
}

var seedUsers = []seedUser{
	{TenantSlug: "acme", Email: "admin@acme.test", Role: models.RoleAdmin},
	{TenantSlug: "acme", Email: "user@acme.test", Role: models.RoleMember},
	{TenantSlug: "globex", Email: "admin@globex.test", Role: models.RoleAdmin},
	{TenantSlug: "globex", Email: "user@globex.test", Role: models.RoleMember},
}

func main() {
	password := flag.String("password", os.Getenv("SEED_PASSWORD"), "initial password for seeded users")
	flag.Parse()

	logger := newLogger()
	defer logger.Sync()

	if *password == "" {
		logger.Fatal("seed password required (flag -password or SEED_PASSWORD)")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	tenantRepo := tenants.NewRepository(pool)
	userRepo := auth.NewRepository(pool)

	hash, err := utils.HashPassword(*password)
	if err != nil {
		logger.Fatal("hash password", zap.Error(err))
	}

	tenantIDs := make(map[string]models.Tenant)
	for _, st := range seedTenants {
		existing, err := tenantRepo.GetBySlug(ctx, st.Slug)
		if err != nil {
			logger.Fatal("lookup tenant", zap.String("slug", st.Slug), zap.Error(err))
		}
		if existing != nil {
			tenantIDs[st.Slug] = *existing
			logger.Info("tenant exists", zap.String("slug", st.Slug))
			continue
		}
		t := models.Tenant{Slug: st.Slug, Name: st.Name, Plan: st.Plan, NoteQuota: st.NoteQuota, IsActive: true}
		if err := tenantRepo.Create(ctx, &t); err != nil {
			logger.Fatal("create tenant", zap.String("slug", st.Slug), zap.Error(err))
		}
		tenantIDs[st.Slug] = t
		logger.Info("tenant created", zap.String("slug", st.Slug), zap.String("plan", string(st.Plan)))
	}

	for _, su := range seedUsers {
		tenant, ok := tenantIDs[su.TenantSlug]
		if !ok {
			logger.Fatal("unknown tenant for user", zap.String("email", su.Email))
		}
		existing, err := userRepo.GetByEmail(ctx, tenant.ID, su.Email)
		if err != nil {
			logger.Fatal("lookup user", zap.String("email", su.Email), zap.Error(err))
		}
		if existing != nil {
			logger.Info("user exists", zap.String("email", su.Email), zap.String("tenant", su.TenantSlug))
			continue
		}
		u := models.User{TenantID: tenant.ID, Email: su.Email, Password: hash, Role: su.Role, IsActive: true}
		if err := userRepo.Create(ctx, &u); err != nil {
			logger.Fatal("create user", zap.String("email", su.Email), zap.Error(err))
		}
		logger.Info("user created", zap.String("email", su.Email), zap.String("tenant", su.TenantSlug), zap.String("role", string(su.Role)))
	}

	logger.Info("seed complete")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
