package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"
	"github.com/strata-blog-api/internal/apperror"
	"github.com/strata-blog-api/internal/database"
	"github.com/strata-blog-api/internal/metrics"
	"github.com/strata-blog-api/internal/models"
	"github.com/strata-blog-api/internal/query"
)

// OwnershipCheck decides whether the caller may mutate a post owned by authorID.
// It runs inside the mutating transaction, after the post row is locked.
type OwnershipCheck func(authorID int64) error

// PostRepository defines the interface for post data operations
type PostRepository interface {
	List(ctx context.Context, spec query.Spec) ([]models.PostSummary, int, error)
	GetDetail(ctx context.Context, id int64) (*models.PostDetail, error)
	Create(ctx context.Context, authorID int64, req *models.CreatePostRequest) (*models.PostDetail, error)
	Update(ctx context.Context, id int64, patch *models.PostPatch, check OwnershipCheck) error
	Delete(ctx context.Context, id int64, check OwnershipCheck) error
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, postID int64, req *models.CreateCommentRequest) (*models.Comment, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateName(ctx context.Context, id int64, name string) (*models.User, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Post    PostRepository
	Comment CommentRepository
	User    UserRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB, m *metrics.Metrics, log zerolog.Logger) *Repositories {
	return &Repositories{
		Post:    NewPostRepo(db, m, log),
		Comment: NewCommentRepo(db, m, log),
		User:    NewUserRepo(db, m, log),
	}
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var readOnlyTx = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// storeError passes application errors through and wraps everything else as a store failure
func storeError(op string, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Store(op, err)
}
