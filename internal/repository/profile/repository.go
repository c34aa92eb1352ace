package profile

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jazjo-app/jazjo/internal/database"
	"github.com/jazjo-app/jazjo/internal/entity"
)

var repoTracer = otel.Tracer("github.com/jazjo-app/jazjo/repository/profile")

// ErrNotFound is returned when a profile is missing.
var ErrNotFound = errors.New("profile not found")

// Repository encapsulates read/write access for identity profiles.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new profile.
func (r *Repository) Create(ctx context.Context, profile *entity.Profile) error {
	if profile == nil {
		return errors.New("nil profile")
	}
	ctx, span := repoTracer.Start(ctx, "ProfileRepository.Create")
	defer span.End()

	_, err := r.writer.NewInsert().Model(profile).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// FindByEmail fetches a profile by its unique email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*entity.Profile, error) {
	ctx, span := repoTracer.Start(ctx, "ProfileRepository.FindByEmail")
	defer span.End()

	profile := new(entity.Profile)
	err := r.reader.NewSelect().Model(profile).Where("email = ?", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return profile, nil
}

// FindByID fetches a profile by primary key.
func (r *Repository) FindByID(ctx context.Context, id int64) (*entity.Profile, error) {
	ctx, span := repoTracer.Start(ctx, "ProfileRepository.FindByID", trace.WithAttributes(attribute.Int64("profile.id", id)))
	defer span.End()

	profile := new(entity.Profile)
	err := r.reader.NewSelect().Model(profile).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return profile, nil
}

// List returns all profiles, newest first.
func (r *Repository) List(ctx context.Context) ([]*entity.Profile, error) {
	ctx, span := repoTracer.Start(ctx, "ProfileRepository.List")
	defer span.End()

	var profiles []*entity.Profile
	err := r.reader.NewSelect().Model(&profiles).Order("created_at DESC").Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return profiles, nil
}

// ListByRole returns profiles holding the given role.
func (r *Repository) ListByRole(ctx context.Context, role entity.Role) ([]*entity.Profile, error) {
	ctx, span := repoTracer.Start(ctx, "ProfileRepository.ListByRole", trace.WithAttributes(attribute.String("role", string(role))))
	defer span.End()

	var profiles []*entity.Profile
	err := r.reader.NewSelect().Model(&profiles).
		Where("role = ?", role).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return profiles, nil
}
