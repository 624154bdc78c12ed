package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/strata-blog-api/internal/auth"
	"github.com/strata-blog-api/internal/cache"
	"github.com/strata-blog-api/internal/metrics"
	"github.com/strata-blog-api/internal/models"
	"github.com/strata-blog-api/internal/query"
	"github.com/strata-blog-api/internal/repository"
	"github.com/strata-blog-api/internal/validation"
)

// PostService defines the interface for post operations
type PostService interface {
	List(ctx context.Context, params query.Params) (*models.PostList, error)
	Retrieve(ctx context.Context, id int64) (*models.PostDetail, error)
	Create(ctx context.Context, p *auth.Principal, req *models.CreatePostRequest) (*models.PostDetail, error)
	Update(ctx context.Context, p *auth.Principal, id int64, patch *models.PostPatch) error
	Delete(ctx context.Context, p *auth.Principal, id int64) error
	AppendComment(ctx context.Context, p *auth.Principal, postID int64, req *models.CreateCommentRequest) (*models.Comment, error)
}

// UserService defines the interface for the caller's own profile
type UserService interface {
	Me(ctx context.Context, p *auth.Principal) (*models.User, error)
	UpdateMe(ctx context.Context, p *auth.Principal, req *models.UpdateUserRequest) (*models.User, error)
}

// Services holds all service interfaces
type Services struct {
	Post PostService
	User UserService
}

// Deps are the collaborators shared by the services
type Deps struct {
	Repos     *repository.Repositories
	Guard     *auth.Guard
	Validator *validation.Validator
	Cache     cache.PostCache
	Metrics   *metrics.Metrics
}

// NewServices creates all services
func NewServices(deps Deps, log zerolog.Logger) *Services {
	if deps.Guard == nil {
		deps.Guard = auth.NewGuard()
	}
	if deps.Validator == nil {
		deps.Validator = validation.NewValidator()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NopCache{}
	}

	return &Services{
		Post: newPostService(deps, log),
		User: newUserService(deps, log),
	}
}
