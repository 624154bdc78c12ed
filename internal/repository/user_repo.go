package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/strata-blog-api/internal/apperror"
	"github.com/strata-blog-api/internal/database"
	"github.com/strata-blog-api/internal/metrics"
	"github.com/strata-blog-api/internal/models"
)

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	db      *database.DB
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *database.DB, m *metrics.Metrics, log zerolog.Logger) UserRepository {
	return &userRepo{
		db:      db,
		metrics: m,
		log:     log.With().Str("repository", "user").Logger(),
	}
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id int64) (user *models.User, err error) {
	start := time.Now()
	defer func() { r.metrics.RecordQuery("user_get", start, err) }()

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var u models.User
	err = r.db.QueryRowContext(ctx, `SELECT id, email, name FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound()
	}
	if err != nil {
		r.log.Error().Err(err).Int64("id", id).Msg("Failed to get user")
		return nil, storeError("get user", err)
	}
	return &u, nil
}

// UpdateName changes the display name of a user and returns the stored row
func (r *userRepo) UpdateName(ctx context.Context, id int64, name string) (user *models.User, err error) {
	start := time.Now()
	defer func() { r.metrics.RecordQuery("user_update_name", start, err) }()

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var u models.User
	err = r.db.QueryRowContext(ctx,
		`UPDATE users SET name = $1 WHERE id = $2 RETURNING id, email, name`, name, id,
	).Scan(&u.ID, &u.Email, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound()
	}
	if err != nil {
		r.log.Error().Err(err).Int64("id", id).Msg("Failed to update user")
		return nil, storeError("update user", err)
	}

	r.log.Debug().Int64("id", id).Msg("User name updated")
	return &u, nil
}
