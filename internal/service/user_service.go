package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/strata-blog-api/internal/apperror"
	"github.com/strata-blog-api/internal/auth"
	"github.com/strata-blog-api/internal/models"
	"github.com/strata-blog-api/internal/repository"
	"github.com/strata-blog-api/internal/validation"
)

// userService implements UserService. It only ever touches the principal's own row.
type userService struct {
	users     repository.UserRepository
	guard     *auth.Guard
	validator *validation.Validator
	log       zerolog.Logger
}

func newUserService(deps Deps, log zerolog.Logger) *userService {
	return &userService{
		users:     deps.Repos.User,
		guard:     deps.Guard,
		validator: deps.Validator,
		log:       log.With().Str("service", "user").Logger(),
	}
}

// Me returns the caller's profile
func (s *userService) Me(ctx context.Context, p *auth.Principal) (*models.User, error) {
	if err := s.guard.Authorize(auth.ActionReadSelf, p); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, p.ID)
	if err != nil {
		return nil, unknownUser(err)
	}
	return user, nil
}

// UpdateMe changes the caller's display name
func (s *userService) UpdateMe(ctx context.Context, p *auth.Principal, req *models.UpdateUserRequest) (*models.User, error) {
	if err := s.guard.Authorize(auth.ActionUpdateSelf, p); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateUpdateUser(req); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateName(ctx, p.ID, strings.TrimSpace(*req.Name))
	if err != nil {
		return nil, unknownUser(err)
	}

	s.log.Info().Int64("user_id", p.ID).Msg("User name updated")
	return user, nil
}

// unknownUser maps a token whose user no longer exists to an authentication failure
func unknownUser(err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.Unauthorized("Unknown user.")
	}
	return err
}
