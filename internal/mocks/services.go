package mocks

import (
	"context"

	"github.com/strata-blog-api/internal/auth"
	"github.com/strata-blog-api/internal/models"
	"github.com/strata-blog-api/internal/query"
	"github.com/strata-blog-api/internal/service"
)

// MockPostService is a mock implementation of PostService. Unset funcs return zero values.
type MockPostService struct {
	ListFunc          func(ctx context.Context, params query.Params) (*models.PostList, error)
	RetrieveFunc      func(ctx context.Context, id int64) (*models.PostDetail, error)
	CreateFunc        func(ctx context.Context, p *auth.Principal, req *models.CreatePostRequest) (*models.PostDetail, error)
	UpdateFunc        func(ctx context.Context, p *auth.Principal, id int64, patch *models.PostPatch) error
	DeleteFunc        func(ctx context.Context, p *auth.Principal, id int64) error
	AppendCommentFunc func(ctx context.Context, p *auth.Principal, postID int64, req *models.CreateCommentRequest) (*models.Comment, error)

	ListParams []query.Params
}

// Verify interface compliance
var _ service.PostService = (*MockPostService)(nil)

func (m *MockPostService) List(ctx context.Context, params query.Params) (*models.PostList, error) {
	m.ListParams = append(m.ListParams, params)
	if m.ListFunc != nil {
		return m.ListFunc(ctx, params)
	}
	return &models.PostList{Posts: []models.PostSummary{}}, nil
}

func (m *MockPostService) Retrieve(ctx context.Context, id int64) (*models.PostDetail, error) {
	if m.RetrieveFunc != nil {
		return m.RetrieveFunc(ctx, id)
	}
	return &models.PostDetail{ID: id, Comments: []models.Comment{}}, nil
}

func (m *MockPostService) Create(ctx context.Context, p *auth.Principal, req *models.CreatePostRequest) (*models.PostDetail, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p, req)
	}
	return &models.PostDetail{ID: 1, Title: req.Title, Comments: []models.Comment{}}, nil
}

func (m *MockPostService) Update(ctx context.Context, p *auth.Principal, id int64, patch *models.PostPatch) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, p, id, patch)
	}
	return nil
}

func (m *MockPostService) Delete(ctx context.Context, p *auth.Principal, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, p, id)
	}
	return nil
}

func (m *MockPostService) AppendComment(ctx context.Context, p *auth.Principal, postID int64, req *models.CreateCommentRequest) (*models.Comment, error) {
	if m.AppendCommentFunc != nil {
		return m.AppendCommentFunc(ctx, p, postID, req)
	}
	return &models.Comment{PostID: postID, AuthorName: req.AuthorName, Content: req.Content}, nil
}

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	MeFunc       func(ctx context.Context, p *auth.Principal) (*models.User, error)
	UpdateMeFunc func(ctx context.Context, p *auth.Principal, req *models.UpdateUserRequest) (*models.User, error)
}

var _ service.UserService = (*MockUserService)(nil)

func (m *MockUserService) Me(ctx context.Context, p *auth.Principal) (*models.User, error) {
	if m.MeFunc != nil {
		return m.MeFunc(ctx, p)
	}
	return &models.User{ID: p.ID, Email: p.Email, Name: p.Name}, nil
}

func (m *MockUserService) UpdateMe(ctx context.Context, p *auth.Principal, req *models.UpdateUserRequest) (*models.User, error) {
	if m.UpdateMeFunc != nil {
		return m.UpdateMeFunc(ctx, p, req)
	}
	return &models.User{ID: p.ID, Email: p.Email, Name: *req.Name}, nil
}
