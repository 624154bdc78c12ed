package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/strata-blog-api/internal/apperror"
	"github.com/strata-blog-api/internal/database"
	"github.com/strata-blog-api/internal/metrics"
	"github.com/strata-blog-api/internal/models"
	"github.com/strata-blog-api/internal/query"
)

const listPostsQuery = `
	SELECT p.id, p.title, p.short_description, p.created_at,
		u.id, u.name, u.email,
		p.image_path,
		lc.created_at, lc.author_name
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN LATERAL (
		SELECT c.created_at, c.author_name
		FROM comments c
		WHERE c.post_id = p.id
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT 1
	) lc ON TRUE`

const countPostsQuery = `SELECT COUNT(*) FROM posts p`

const postDetailQuery = `
	SELECT p.id, p.title, p.content, p.image_path, u.id, u.name, u.email
	FROM posts p
	JOIN users u ON u.id = p.author_id
	WHERE p.id = $1`

const createPostQuery = `
	WITH inserted AS (
		INSERT INTO posts (title, short_description, content, image_path, author_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, title, content, image_path, author_id
	)
	SELECT i.id, i.title, i.content, i.image_path, u.id, u.name, u.email
	FROM inserted i
	JOIN users u ON u.id = i.author_id`

const lockPostQuery = `SELECT author_id FROM posts WHERE id = $1 FOR UPDATE`

// postRepo is the concrete implementation of PostRepository
type postRepo struct {
	db      *database.DB
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewPostRepo creates a new post repository
func NewPostRepo(db *database.DB, m *metrics.Metrics, log zerolog.Logger) PostRepository {
	return &postRepo{
		db:      db,
		metrics: m,
		log:     log.With().Str("repository", "post").Logger(),
	}
}

// List returns one page of post summaries and the number of posts matching the filter.
// Both statements share a read-only snapshot so the count agrees with the page.
func (r *postRepo) List(ctx context.Context, spec query.Spec) (posts []models.PostSummary, total int, err error) {
	start := time.Now()
	defer func() { r.metrics.RecordQuery("post_list", start, err) }()

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	where, args := spec.Where()
	limit, limitArgs := spec.Limit(len(args))
	listSQL := listPostsQuery + where + spec.OrderBy() + limit
	listArgs := append(append([]interface{}{}, args...), limitArgs...)

	r.log.Debug().
		Str("sort_by", spec.SortField).
		Interface("author_id", spec.AuthorID).
		Int("page", spec.Page).
		Int("page_size", spec.PageSize).
		Msg("Listing posts")

	err = r.db.InTx(ctx, readOnlyTx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, countPostsQuery+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("count posts: %w", err)
		}

		rows, err := tx.QueryContext(ctx, listSQL, listArgs...)
		if err != nil {
			return fmt.Errorf("query posts: %w", err)
		}
		defer rows.Close()

		posts = make([]models.PostSummary, 0, spec.PageSize)
		for rows.Next() {
			post, err := scanPostSummary(rows)
			if err != nil {
				return fmt.Errorf("scan post: %w", err)
			}
			posts = append(posts, post)
		}
		return rows.Err()
	})
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list posts")
		return nil, 0, storeError("list posts", err)
	}

	return posts, total, nil
}

// GetDetail returns a post with its author and all comments, newest first
func (r *postRepo) GetDetail(ctx context.Context, id int64) (detail *models.PostDetail, err error) {
	start := time.Now()
	defer func() { r.metrics.RecordQuery("post_get_detail", start, err) }()

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	err = r.db.InTx(ctx, readOnlyTx, func(tx *sql.Tx) error {
		d, err := scanPostDetail(tx.QueryRowContext(ctx, postDetailQuery, id))
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound()
		}
		if err != nil {
			return fmt.Errorf("query post: %w", err)
		}

		d.Comments, err = listComments(ctx, tx, id)
		if err != nil {
			return err
		}
		detail = d
		return nil
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			r.log.Debug().Int64("id", id).Msg("Post not found")
			return nil, err
		}
		r.log.Error().Err(err).Int64("id", id).Msg("Failed to get post")
		return nil, storeError("get post", err)
	}

	return detail, nil
}

// Create inserts a post authored by authorID and returns it in detail form
func (r *postRepo) Create(ctx context.Context, authorID int64, req *models.CreatePostRequest) (detail *models.PostDetail, err error) {
	start := time.Now()
	defer func() { r.metrics.RecordQuery("post_create", start, err) }()

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	detail, err = scanPostDetail(r.db.QueryRowContext(ctx, createPostQuery,
		req.Title, req.ShortDescription, req.Content, req.ImagePath, authorID,
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperror.Unauthorized("Unknown user.")
		}
		r.log.Error().Err(err).Int64("author_id", authorID).Msg("Failed to create post")
		return nil, storeError("create post", err)
	}
	detail.Comments = []models.Comment{}

	r.log.Debug().Int64("id", detail.ID).Int64("author_id", authorID).Msg("Post created")
	return detail, nil
}

// Update applies the present patch fields after locking the row and running check
func (r *postRepo) Update(ctx context.Context, id int64, patch *models.PostPatch, check OwnershipCheck) (err error) {
	start := time.Now()
	defer func() { r.metrics.RecordQuery("post_update", start, err) }()

	setSQL, args := buildSetClause(patch)
	if len(args) == 0 {
		return apperror.Validation("No fields to update.")
	}
	args = append(args, id)
	updateSQL := "UPDATE posts SET " + setSQL + fmt.Sprintf(" WHERE id = $%d", len(args))

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	err = r.db.InTx(ctx, nil, func(tx *sql.Tx) error {
		if err := lockAndCheck(ctx, tx, id, check); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, updateSQL, args...); err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		return nil
	})
	if err != nil {
		return r.mutationError("update post", id, err)
	}

	r.log.Debug().Int64("id", id).Int("fields", len(args)-1).Msg("Post updated")
	return nil
}

// Delete removes the post after locking the row and running check. Comments cascade.
func (r *postRepo) Delete(ctx context.Context, id int64, check OwnershipCheck) (err error) {
	start := time.Now()
	defer func() { r.metrics.RecordQuery("post_delete", start, err) }()

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	err = r.db.InTx(ctx, nil, func(tx *sql.Tx) error {
		if err := lockAndCheck(ctx, tx, id, check); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		return nil
	})
	if err != nil {
		return r.mutationError("delete post", id, err)
	}

	r.log.Debug().Int64("id", id).Msg("Post deleted")
	return nil
}

func (r *postRepo) mutationError(op string, id int64, err error) error {
	switch apperror.KindOf(err) {
	case apperror.KindNotFound, apperror.KindForbidden, apperror.KindValidation:
		r.log.Debug().Err(err).Int64("id", id).Str("op", op).Msg("Mutation rejected")
		return err
	}
	r.log.Error().Err(err).Int64("id", id).Str("op", op).Msg("Mutation failed")
	return storeError(op, err)
}

// lockAndCheck locks the post row for the rest of the transaction and applies check
func lockAndCheck(ctx context.Context, tx querier, id int64, check OwnershipCheck) error {
	var authorID int64
	err := tx.QueryRowContext(ctx, lockPostQuery, id).Scan(&authorID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound()
	}
	if err != nil {
		return fmt.Errorf("lock post: %w", err)
	}
	if check != nil {
		return check(authorID)
	}
	return nil
}

// buildSetClause renders SET assignments for present fields only, in a fixed column order
func buildSetClause(patch *models.PostPatch) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title.Set {
		add("title", patch.Title.Value)
	}
	if patch.ShortDescription.Set {
		add("short_description", patch.ShortDescription.Value)
	}
	if patch.Content.Set {
		add("content", patch.Content.Value)
	}
	if patch.ImagePath.Set {
		add("image_path", patch.ImagePath.Ptr())
	}

	return strings.Join(clauses, ", "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPostSummary(row rowScanner) (models.PostSummary, error) {
	var (
		post              models.PostSummary
		imagePath         sql.NullString
		lastCommentDate   sql.NullTime
		lastCommentAuthor sql.NullString
	)

	err := row.Scan(
		&post.ID, &post.Title, &post.ShortDescription, &post.CreatedAt,
		&post.Author.ID, &post.Author.Name, &post.Author.Email,
		&imagePath,
		&lastCommentDate, &lastCommentAuthor,
	)
	if err != nil {
		return post, err
	}

	if imagePath.Valid {
		post.ImagePath = &imagePath.String
	}
	if lastCommentDate.Valid {
		post.LastCommentDate = &lastCommentDate.Time
	}
	if lastCommentAuthor.Valid {
		post.LastCommentAuthor = &lastCommentAuthor.String
	}
	return post, nil
}

func scanPostDetail(row rowScanner) (*models.PostDetail, error) {
	var (
		detail    models.PostDetail
		imagePath sql.NullString
	)

	err := row.Scan(
		&detail.ID, &detail.Title, &detail.Content, &imagePath,
		&detail.Author.ID, &detail.Author.Name, &detail.Author.Email,
	)
	if err != nil {
		return nil, err
	}

	if imagePath.Valid {
		detail.ImagePath = &imagePath.String
	}
	return &detail, nil
}
