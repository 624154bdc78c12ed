package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/strata-blog-api/internal/apperror"
	"github.com/strata-blog-api/internal/models"
	"github.com/strata-blog-api/internal/query"
	"github.com/strata-blog-api/internal/repository"
)

// Store is an in-memory blog database shared by the mock repositories.
// It mirrors the PostgreSQL semantics the service layer relies on: the
// author join, last-comment projection, cascade delete and ownership locking.
type Store struct {
	mu sync.Mutex

	Users    map[int64]*models.User
	Posts    map[int64]*models.Post
	Comments map[int64]*models.Comment

	nextPostID    int64
	nextCommentID int64

	// Now supplies creation timestamps. Tests replace it to control ordering.
	Now func() time.Time

	// Err, when set, is returned by every repository call
	Err error
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		Users:    make(map[int64]*models.User),
		Posts:    make(map[int64]*models.Post),
		Comments: make(map[int64]*models.Comment),
		Now:      time.Now,
	}
}

// Repositories returns repository implementations over the store
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Post:    &MockPostRepository{store: s},
		Comment: &MockCommentRepository{store: s},
		User:    &MockUserRepository{store: s},
	}
}

// AddUser seeds a user
func (s *Store) AddUser(u models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := u
	s.Users[u.ID] = &user
	return &user
}

// AddPost seeds a post and returns its id
func (s *Store) AddPost(p models.Post) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPostID++
	post := p
	post.ID = s.nextPostID
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.Now()
	}
	s.Posts[post.ID] = &post
	return post.ID
}

// AddComment seeds a comment and returns its id
func (s *Store) AddComment(c models.Comment) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCommentID++
	comment := c
	comment.ID = s.nextCommentID
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = s.Now()
	}
	s.Comments[comment.ID] = &comment
	return comment.ID
}

// CommentCount returns the number of comments stored for a post
func (s *Store) CommentCount(postID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.Comments {
		if c.PostID == postID {
			n++
		}
	}
	return n
}

func (s *Store) author(id int64) models.Author {
	if u, ok := s.Users[id]; ok {
		return models.Author{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return models.Author{ID: id}
}

// commentsOf returns comments newest first, ties broken by the higher id
func (s *Store) commentsOf(postID int64) []models.Comment {
	out := []models.Comment{}
	for _, c := range s.Comments {
		if c.PostID == postID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// MockPostRepository is an in-memory PostRepository
type MockPostRepository struct {
	store *Store
}

func (m *MockPostRepository) List(ctx context.Context, spec query.Spec) ([]models.PostSummary, int, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}

	var matched []*models.Post
	for _, p := range s.Posts {
		if spec.AuthorID != nil && p.AuthorID != *spec.AuthorID {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch spec.SortField {
		case "title":
			if a.Title != b.Title {
				return strings.Compare(a.Title, b.Title) > 0
			}
		case "author_id":
			if a.AuthorID != b.AuthorID {
				return a.AuthorID > b.AuthorID
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID > b.ID
	})

	total := len(matched)
	start := spec.Offset()
	if start > total {
		start = total
	}
	end := start + spec.PageSize
	if end > total {
		end = total
	}

	page := make([]models.PostSummary, 0, end-start)
	for _, p := range matched[start:end] {
		summary := models.PostSummary{
			ID:               p.ID,
			Title:            p.Title,
			ShortDescription: p.ShortDescription,
			CreatedAt:        p.CreatedAt,
			Author:           s.author(p.AuthorID),
			ImagePath:        p.ImagePath,
		}
		if comments := s.commentsOf(p.ID); len(comments) > 0 {
			last := comments[0]
			summary.LastCommentDate = &last.CreatedAt
			summary.LastCommentAuthor = &last.AuthorName
		}
		page = append(page, summary)
	}
	return page, total, nil
}

func (m *MockPostRepository) GetDetail(ctx context.Context, id int64) (*models.PostDetail, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	p, ok := s.Posts[id]
	if !ok {
		return nil, apperror.NotFound()
	}
	return &models.PostDetail{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Author:    s.author(p.AuthorID),
		ImagePath: p.ImagePath,
		Comments:  s.commentsOf(p.ID),
	}, nil
}

func (m *MockPostRepository) Create(ctx context.Context, authorID int64, req *models.CreatePostRequest) (*models.PostDetail, error) {
	s := m.store
	s.mu.Lock()
	if s.Err != nil {
		s.mu.Unlock()
		return nil, s.Err
	}
	if _, ok := s.Users[authorID]; !ok {
		s.mu.Unlock()
		return nil, apperror.Unauthorized("Unknown user.")
	}
	s.mu.Unlock()

	id := s.AddPost(models.Post{
		Title:            req.Title,
		ShortDescription: req.ShortDescription,
		Content:          req.Content,
		ImagePath:        req.ImagePath,
		AuthorID:         authorID,
	})
	return m.GetDetail(ctx, id)
}

func (m *MockPostRepository) Update(ctx context.Context, id int64, patch *models.PostPatch, check repository.OwnershipCheck) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	p, ok := s.Posts[id]
	if !ok {
		return apperror.NotFound()
	}
	if check != nil {
		if err := check(p.AuthorID); err != nil {
			return err
		}
	}

	if patch.Title.Set {
		p.Title = patch.Title.Value
	}
	if patch.ShortDescription.Set {
		p.ShortDescription = patch.ShortDescription.Value
	}
	if patch.Content.Set {
		p.Content = patch.Content.Value
	}
	if patch.ImagePath.Set {
		p.ImagePath = patch.ImagePath.Ptr()
	}
	return nil
}

func (m *MockPostRepository) Delete(ctx context.Context, id int64, check repository.OwnershipCheck) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	p, ok := s.Posts[id]
	if !ok {
		return apperror.NotFound()
	}
	if check != nil {
		if err := check(p.AuthorID); err != nil {
			return err
		}
	}

	delete(s.Posts, id)
	for cid, c := range s.Comments {
		if c.PostID == id {
			delete(s.Comments, cid)
		}
	}
	return nil
}

// MockCommentRepository is an in-memory CommentRepository
type MockCommentRepository struct {
	store *Store
}

func (m *MockCommentRepository) Create(ctx context.Context, postID int64, req *models.CreateCommentRequest) (*models.Comment, error) {
	s := m.store
	s.mu.Lock()
	if s.Err != nil {
		s.mu.Unlock()
		return nil, s.Err
	}
	if _, ok := s.Posts[postID]; !ok {
		s.mu.Unlock()
		return nil, apperror.NotFound()
	}
	s.mu.Unlock()

	id := s.AddComment(models.Comment{PostID: postID, AuthorName: req.AuthorName, Content: req.Content})

	s.mu.Lock()
	defer s.mu.Unlock()
	c := *s.Comments[id]
	return &c, nil
}

// MockUserRepository is an in-memory UserRepository
type MockUserRepository struct {
	store *Store
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.Users[id]
	if !ok {
		return nil, apperror.NotFound()
	}
	user := *u
	return &user, nil
}

func (m *MockUserRepository) UpdateName(ctx context.Context, id int64, name string) (*models.User, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.Users[id]
	if !ok {
		return nil, apperror.NotFound()
	}
	u.Name = name
	user := *u
	return &user, nil
}
