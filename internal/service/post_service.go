package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/strata-blog-api/internal/apperror"
	"github.com/strata-blog-api/internal/auth"
	"github.com/strata-blog-api/internal/cache"
	"github.com/strata-blog-api/internal/metrics"
	"github.com/strata-blog-api/internal/models"
	"github.com/strata-blog-api/internal/pagination"
	"github.com/strata-blog-api/internal/query"
	"github.com/strata-blog-api/internal/repository"
	"github.com/strata-blog-api/internal/validation"
)

// postService implements PostService
type postService struct {
	posts     repository.PostRepository
	comments  repository.CommentRepository
	guard     *auth.Guard
	validator *validation.Validator
	cache     cache.PostCache
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func newPostService(deps Deps, log zerolog.Logger) *postService {
	return &postService{
		posts:     deps.Repos.Post,
		comments:  deps.Repos.Comment,
		guard:     deps.Guard,
		validator: deps.Validator,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		log:       log.With().Str("service", "post").Logger(),
	}
}

// List returns the requested page of posts with pagination metadata
func (s *postService) List(ctx context.Context, params query.Params) (*models.PostList, error) {
	if err := s.guard.Authorize(auth.ActionList, nil); err != nil {
		return nil, err
	}

	spec := query.Build(params)
	posts, total, err := s.posts.List(ctx, spec)
	if err != nil {
		return nil, err
	}

	page := pagination.Paginate(total, spec.Page, spec.PageSize)
	if posts == nil {
		posts = []models.PostSummary{}
	}

	return &models.PostList{
		TotalCount:  page.TotalCount,
		PageSize:    page.PageSize,
		CurrentPage: page.CurrentPage,
		TotalPages:  page.TotalPages,
		Posts:       posts,
	}, nil
}

// Retrieve returns a post detail, reading through the cache. The generation is
// taken before the store read so a concurrent write keeps the stale copy out.
func (s *postService) Retrieve(ctx context.Context, id int64) (*models.PostDetail, error) {
	if err := s.guard.Authorize(auth.ActionRetrieve, nil); err != nil {
		return nil, err
	}

	cached, err := s.cache.GetPost(ctx, id)
	if err == nil {
		s.metrics.RecordCache(true)
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn().Err(err).Int64("post_id", id).Msg("Cache lookup failed")
	}
	s.metrics.RecordCache(false)

	gen, genErr := s.cache.Generation(ctx, id)
	if genErr != nil {
		s.log.Warn().Err(genErr).Int64("post_id", id).Msg("Failed to read post generation")
	}

	detail, err := s.posts.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	if genErr == nil {
		if err := s.cache.SetPost(ctx, detail, gen); err != nil {
			s.log.Warn().Err(err).Int64("post_id", id).Msg("Failed to cache post")
		}
	}
	return detail, nil
}

// Create publishes a new post authored by the principal
func (s *postService) Create(ctx context.Context, p *auth.Principal, req *models.CreatePostRequest) (*models.PostDetail, error) {
	if err := s.guard.Authorize(auth.ActionCreate, p); err != nil {
		return nil, s.record("create", err)
	}
	if err := s.validator.ValidateCreatePost(req); err != nil {
		return nil, s.record("create", err)
	}

	detail, err := s.posts.Create(ctx, p.ID, req)
	if err != nil {
		return nil, s.record("create", err)
	}

	s.log.Info().Int64("post_id", detail.ID).Int64("author_id", p.ID).Msg("Post created")
	return detail, s.record("create", nil)
}

// Update applies a partial update. Only the author may update a post; a missing
// post is reported the same way as someone else's post.
func (s *postService) Update(ctx context.Context, p *auth.Principal, id int64, patch *models.PostPatch) error {
	if err := s.guard.Authorize(auth.ActionUpdate, p); err != nil {
		return s.record("update", err)
	}
	if err := s.validator.ValidatePatch(patch); err != nil {
		return s.record("update", err)
	}

	err := s.posts.Update(ctx, id, patch, s.guard.OwnerCheck(auth.ActionUpdate, p))
	if err != nil {
		return s.record("update", concealMissing(err, "Not permission to update this post."))
	}

	s.invalidate(ctx, id)
	s.log.Info().Int64("post_id", id).Int64("user_id", p.ID).Msg("Post updated")
	return s.record("update", nil)
}

// Delete removes a post and, through the store, all of its comments
func (s *postService) Delete(ctx context.Context, p *auth.Principal, id int64) error {
	if err := s.guard.Authorize(auth.ActionDelete, p); err != nil {
		return s.record("delete", err)
	}

	err := s.posts.Delete(ctx, id, s.guard.OwnerCheck(auth.ActionDelete, p))
	if err != nil {
		return s.record("delete", concealMissing(err, "Not permission to delete this post."))
	}

	s.invalidate(ctx, id)
	s.log.Info().Int64("post_id", id).Int64("user_id", p.ID).Msg("Post deleted")
	return s.record("delete", nil)
}

// AppendComment adds a comment to an existing post
func (s *postService) AppendComment(ctx context.Context, p *auth.Principal, postID int64, req *models.CreateCommentRequest) (*models.Comment, error) {
	if err := s.guard.Authorize(auth.ActionAppendComment, p); err != nil {
		return nil, s.record("comment", err)
	}
	if err := s.validator.ValidateComment(req); err != nil {
		return nil, s.record("comment", err)
	}

	comment, err := s.comments.Create(ctx, postID, req)
	if err != nil {
		return nil, s.record("comment", err)
	}

	s.invalidate(ctx, postID)
	return comment, s.record("comment", nil)
}

func (s *postService) invalidate(ctx context.Context, id int64) {
	if err := s.cache.InvalidatePost(ctx, id); err != nil {
		s.log.Warn().Err(err).Int64("post_id", id).Msg("Failed to invalidate cached post")
	}
}

// record counts the operation outcome and returns err unchanged
func (s *postService) record(op string, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = string(apperror.KindOf(err))
	}
	s.metrics.RecordPostOperation(op, outcome)
	return err
}

// concealMissing reports a missing post as forbidden so callers cannot probe for ids
func concealMissing(err error, message string) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.Forbidden(message)
	}
	return err
}
