package seeder

import (
	"context"
	"os"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jazjo-app/jazjo/internal/config"
	"github.com/jazjo-app/jazjo/internal/database"
	"github.com/jazjo-app/jazjo/internal/entity"
)

// Module wires the seeder for CLI use.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	cfg    config.Config
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, cfg config.Config, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, cfg: cfg, logger: logger}
}

// Run seeds the catalog and staff accounts.
func (s *Seeder) Run(ctx context.Context) error {
	if err := s.Products(ctx); err != nil {
		return err
	}
	return s.Staff(ctx)
}

// Products seeds the sample catalog if rows are missing.
func (s *Seeder) Products(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.Product{
		{SKU: "P001", Name: "Purified Water Round", Category: "Water", Unit: "case", Price: 55, StockCases: 120, Active: true},
		{SKU: "P002", Name: "Purified Water Slim", Category: "Water", Unit: "case", Price: 50, StockCases: 90, Active: true},
		{SKU: "P003", Name: "Mineral Water 500ml", Category: "Water", Unit: "case", Price: 180, StockCases: 45, Active: true},
		{SKU: "P004", Name: "Mineral Water 1L", Category: "Water", Unit: "case", Price: 220, StockCases: 8, Active: true},
		{SKU: "P005", Name: "Distilled Water 6L", Category: "Water", Unit: "case", Price: 260, StockCases: 0, Active: true},
	}

	for _, sample := range samples {
		product := sample
		product.CreatedAt = now
		product.UpdatedAt = now
		_, err := s.db.NewInsert().Model(&product).
			On("CONFLICT (sku) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded products", zap.Int("count", len(samples)))
	}
	return nil
}

// Staff seeds one admin and one staff account. Passwords come from
// SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD, with throwaway dev defaults.
func (s *Seeder) Staff(ctx context.Context) error {
	now := time.Now().UTC()
	accounts := []struct {
		email    string
		name     string
		role     entity.Role
		password string
	}{
		{"admin@jazjo.local", "Jazjo Admin", entity.RoleAdmin, envOr("SEED_ADMIN_PASSWORD", "admin-dev-only")},
		{"staff@jazjo.local", "Jazjo Staff", entity.RoleStaff, envOr("SEED_STAFF_PASSWORD", "staff-dev-only")},
	}

	cost := s.cfg.Auth.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}

	for _, account := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(account.password), cost)
		if err != nil {
			return err
		}
		profile := entity.Profile{
			Email:        account.email,
			PasswordHash: string(hash),
			Role:         account.role,
			DisplayName:  account.name,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		_, err = s.db.NewInsert().Model(&profile).
			On("CONFLICT (email) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded staff accounts", zap.Int("count", len(accounts)))
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
