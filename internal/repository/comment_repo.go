package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/strata-blog-api/internal/apperror"
	"github.com/strata-blog-api/internal/database"
	"github.com/strata-blog-api/internal/metrics"
	"github.com/strata-blog-api/internal/models"
)

const foreignKeyViolation = "23503"

const insertCommentQuery = `
	INSERT INTO comments (post_id, author_name, content)
	VALUES ($1, $2, $3)
	RETURNING id, post_id, author_name, content, created_at`

const listCommentsQuery = `
	SELECT id, post_id, author_name, content, created_at
	FROM comments
	WHERE post_id = $1
	ORDER BY created_at DESC, id DESC`

// commentRepo is the concrete implementation of CommentRepository
type commentRepo struct {
	db      *database.DB
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(db *database.DB, m *metrics.Metrics, log zerolog.Logger) CommentRepository {
	return &commentRepo{
		db:      db,
		metrics: m,
		log:     log.With().Str("repository", "comment").Logger(),
	}
}

// Create appends a comment to postID. A missing post yields a not found error.
func (r *commentRepo) Create(ctx context.Context, postID int64, req *models.CreateCommentRequest) (comment *models.Comment, err error) {
	start := time.Now()
	defer func() { r.metrics.RecordQuery("comment_create", start, err) }()

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var c models.Comment
	err = r.db.QueryRowContext(ctx, insertCommentQuery, postID, req.AuthorName, req.Content).
		Scan(&c.ID, &c.PostID, &c.AuthorName, &c.Content, &c.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			r.log.Debug().Int64("post_id", postID).Msg("Comment target post does not exist")
			return nil, apperror.NotFound()
		}
		r.log.Error().Err(err).Int64("post_id", postID).Msg("Failed to create comment")
		return nil, storeError("create comment", err)
	}

	r.log.Debug().Int64("id", c.ID).Int64("post_id", postID).Msg("Comment created")
	return &c, nil
}

// listComments returns every comment of postID, newest first
func listComments(ctx context.Context, q querier, postID int64) ([]models.Comment, error) {
	rows, err := q.QueryContext(ctx, listCommentsQuery, postID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorName, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}
