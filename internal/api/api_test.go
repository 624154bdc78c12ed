package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strata-blog-api/internal/api"
	"github.com/strata-blog-api/internal/apperror"
	"github.com/strata-blog-api/internal/auth"
	"github.com/strata-blog-api/internal/metrics"
	"github.com/strata-blog-api/internal/mocks"
	"github.com/strata-blog-api/internal/models"
	"github.com/strata-blog-api/internal/query"
	"github.com/strata-blog-api/internal/service"
)

const testSecret = "api-test-secret"

type healthFunc func(ctx context.Context) error

func (f healthFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

type testServer struct {
	router *gin.Engine
	store  *mocks.Store
	tokens *auth.JWTParser
}

func setupTestRouter(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := mocks.NewStore()
	store.AddUser(models.User{ID: 1, Email: "ada@example.com", Name: "Ada"})
	store.AddUser(models.User{ID: 2, Email: "bob@example.com", Name: "Bob"})

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	tokens := auth.NewJWTParser(testSecret)

	services := service.NewServices(service.Deps{Repos: store.Repositories(), Metrics: m}, zerolog.Nop())
	router := api.NewRouter(services, api.Deps{
		Tokens:   tokens,
		Metrics:  m,
		Gatherer: reg,
		Health:   healthFunc(func(context.Context) error { return nil }),
	}, zerolog.Nop())

	return &testServer{router: router, store: store, tokens: tokens}
}

func (s *testServer) token(t *testing.T, id int64) string {
	t.Helper()
	tok, err := s.tokens.Sign(auth.Principal{ID: id}, nil)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHealthEndpoint(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do(http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "strata-blog-api", body["service"])
}

func TestHealthEndpoint_DatabaseDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	services := service.NewServices(service.Deps{Repos: mocks.NewStore().Repositories()}, zerolog.Nop())
	router := api.NewRouter(services, api.Deps{
		Health: healthFunc(func(context.Context) error { return errors.New("connection refused") }),
	}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unhealthy")
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestRouter(t)
	s.do(http.MethodGet, "/posts", "", nil)

	w := s.do(http.MethodGet, "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `strata_blog_http_requests_total{endpoint="/posts",method="GET",status="2xx"} 1`)
}

func TestListPosts_Envelope(t *testing.T) {
	s := setupTestRouter(t)
	for i := 0; i < 3; i++ {
		s.store.AddPost(models.Post{Title: "Some post title", AuthorID: 1})
	}

	w := s.do(http.MethodGet, "/posts?page_size=2&page=2&sort_by=title", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 3.0, body["total_count"])
	assert.Equal(t, 2.0, body["page_size"])
	assert.Equal(t, 2.0, body["current_page"])
	assert.Equal(t, 2.0, body["total_pages"])

	posts := body["posts"].([]interface{})
	require.Len(t, posts, 1)
	post := posts[0].(map[string]interface{})
	assert.NotContains(t, post, "content")
	assert.Contains(t, post, "last_comment_date")
	assert.Nil(t, post["last_comment_author"])
	assert.Equal(t, "Ada", post["author"].(map[string]interface{})["name"])
}

func TestRetrievePost_NotFound(t *testing.T) {
	s := setupTestRouter(t)

	for _, path := range []string{"/posts/999", "/posts/abc", "/posts/1.5"} {
		w := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.JSONEq(t, `{"detail":"Not found."}`, w.Body.String(), path)
	}
}

func TestCreatePost(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do(http.MethodPost, "/posts", "", map[string]string{"title": "Anonymous post title"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authentication credentials were not provided.", decode(t, w)["detail"])

	w = s.do(http.MethodPost, "/posts", s.token(t, 1), map[string]string{"title": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode(t, w)["errors"].([]interface{})
	require.NotEmpty(t, errs)
	assert.Equal(t, "title", errs[0].(map[string]interface{})["field"])

	w = s.do(http.MethodPost, "/posts", s.token(t, 1), `{"title": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/posts", s.token(t, 1), map[string]string{
		"title": "A proper post title", "short_description": "s", "content": "c",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "A proper post title", body["title"])
	assert.Equal(t, []interface{}{}, body["comments"])
	assert.Nil(t, body["image_path"])
}

func TestPostLifecycle(t *testing.T) {
	s := setupTestRouter(t)
	ada, bob := s.token(t, 1), s.token(t, 2)

	id := s.store.AddPost(models.Post{Title: "Lifecycle post title", Content: "original", AuthorID: 1})
	path := "/posts/" + strconv.FormatInt(id, 10)

	w := s.do(http.MethodPatch, path, bob, map[string]string{"title": "Bob was here, sorry"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Not permission to update this post.", decode(t, w)["detail"])

	w = s.do(http.MethodPatch, path, ada, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No fields to update.", decode(t, w)["detail"])

	w = s.do(http.MethodPatch, path, ada, map[string]string{"title": "Lifecycle post renamed"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = s.do(http.MethodPut, path, ada, `{"image_path": null}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodPost, path+"/comments", bob, map[string]string{"author_name": "Bob", "content": "First!"})
	require.Equal(t, http.StatusCreated, w.Code)
	comment := decode(t, w)
	assert.Equal(t, "Bob", comment["author_name"])
	assert.NotContains(t, comment, "post_id")

	w = s.do(http.MethodPost, path+"/add_comment", bob, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Author name and content are required.", decode(t, w)["detail"])

	w = s.do(http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode(t, w)
	assert.Equal(t, "Lifecycle post renamed", detail["title"])
	assert.Equal(t, "original", detail["content"])
	assert.Len(t, detail["comments"], 1)

	w = s.do(http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, path, ada, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, s.store.CommentCount(id))

	w = s.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, path, ada, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCommentOnMissingPost(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do(http.MethodPost, "/posts/42/comments", s.token(t, 1), map[string]string{"author_name": "A", "content": "B"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidToken(t *testing.T) {
	s := setupTestRouter(t)
	body := map[string]string{"title": "A proper post title"}

	w := s.do(http.MethodPost, "/posts", "not-a-token", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid or expired token.", decode(t, w)["detail"])

	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewReader(data))
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid authorization header.", decode(t, rec)["detail"])
	assert.Empty(t, s.store.Posts)
}

func TestInvalidTokenOnPublicReads(t *testing.T) {
	s := setupTestRouter(t)
	id := s.store.AddPost(models.Post{Title: "Readable post title", AuthorID: 1})

	for _, path := range []string{"/posts", "/posts/" + strconv.FormatInt(id, 10)} {
		w := s.do(http.MethodGet, path, "expired.or.garbage", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)

		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Basic abc")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestUsersMe(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do(http.MethodGet, "/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/users/me", s.token(t, 2), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":2,"email":"bob@example.com","name":"Bob"}`, w.Body.String())

	w = s.do(http.MethodPatch, "/users/me", s.token(t, 2), map[string]string{"name": "Robert"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Robert", decode(t, w)["name"])
	assert.Equal(t, "Ada", s.store.Users[1].Name)
}

func TestStoreFailureIsNotLeaked(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockPosts := &mocks.MockPostService{
		ListFunc: func(ctx context.Context, params query.Params) (*models.PostList, error) {
			return nil, apperror.Store("list posts", errors.New(`pq: relation "posts" does not exist`))
		},
	}
	router := api.NewRouter(&service.Services{Post: mockPosts, User: &mocks.MockUserService{}}, api.Deps{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/posts?sort_by=title&author_id=3", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Internal server error."}`, w.Body.String())
	assert.False(t, strings.Contains(w.Body.String(), "relation"))

	require.Len(t, mockPosts.ListParams, 1)
	assert.Equal(t, query.Params{SortBy: "title", AuthorID: "3"}, mockPosts.ListParams[0])
}

func TestPanicIsLoggedAndCounted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockPosts := &mocks.MockPostService{
		ListFunc: func(ctx context.Context, params query.Params) (*models.PostList, error) {
			panic("nil map write")
		},
	}
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	var logs bytes.Buffer
	router := api.NewRouter(&service.Services{Post: mockPosts, User: &mocks.MockUserService{}},
		api.Deps{Metrics: m, Gatherer: reg}, zerolog.New(&logs))

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Internal server error."}`, w.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/posts", "5xx")))
	assert.Contains(t, logs.String(), "Panic recovered")
	assert.Contains(t, logs.String(), `"message":"Request completed"`)
	assert.Contains(t, logs.String(), `"status":500`)
}

func TestCORSHeaders(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do(http.MethodOptions, "/posts/1", "", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRequestID(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do(http.MethodGet, "/posts", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
