// Package auth resolves the request principal and decides which actions it may perform.
package auth

import (
	"github.com/strata-blog-api/internal/apperror"
)

// Action names an operation subject to authorization
type Action string

const (
	ActionList          Action = "list"
	ActionRetrieve      Action = "retrieve"
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
	ActionAppendComment Action = "append_comment"
	ActionReadSelf      Action = "read_self"
	ActionUpdateSelf    Action = "update_self"
)

// Principal is the authenticated caller. A nil *Principal is anonymous.
type Principal struct {
	ID    int64
	Email string
	Name  string
}

type requirement int

const (
	public requirement = iota
	authenticated
	owner
)

// policy is closed: an action missing from the table is denied
var policy = map[Action]requirement{
	ActionList:          public,
	ActionRetrieve:      public,
	ActionCreate:        authenticated,
	ActionUpdate:        owner,
	ActionDelete:        owner,
	ActionAppendComment: authenticated,
	ActionReadSelf:      authenticated,
	ActionUpdateSelf:    authenticated,
}

// Guard evaluates the action policy
type Guard struct{}

// NewGuard creates a guard over the built-in policy
func NewGuard() *Guard {
	return &Guard{}
}

// Authorize is the pre-check run before any data access
func (g *Guard) Authorize(action Action, p *Principal) error {
	req, ok := policy[action]
	if !ok {
		return apperror.Forbidden(apperror.ErrForbidden.Message)
	}
	if req == public {
		return nil
	}
	if p == nil {
		return apperror.Unauthorized(apperror.ErrUnauthorized.Message)
	}
	return nil
}

// AuthorizeOwner applies the ownership rule for update and delete
func (g *Guard) AuthorizeOwner(action Action, p *Principal, authorID int64) error {
	if err := g.Authorize(action, p); err != nil {
		return err
	}
	if policy[action] != owner {
		return nil
	}
	if p.ID != authorID {
		return apperror.Forbidden(forbiddenMessage(action))
	}
	return nil
}

// OwnerCheck binds the ownership rule to a principal for use inside a store transaction
func (g *Guard) OwnerCheck(action Action, p *Principal) func(authorID int64) error {
	return func(authorID int64) error {
		return g.AuthorizeOwner(action, p, authorID)
	}
}

func forbiddenMessage(action Action) string {
	switch action {
	case ActionUpdate:
		return "Not permission to update this post."
	case ActionDelete:
		return "Not permission to delete this post."
	}
	return apperror.ErrForbidden.Message
}
