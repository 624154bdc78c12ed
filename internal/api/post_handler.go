package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/strata-blog-api/internal/auth"
	"github.com/strata-blog-api/internal/models"
	"github.com/strata-blog-api/internal/query"
	"github.com/strata-blog-api/internal/service"
)

// PostHandler handles post and comment endpoints
type PostHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(services *service.Services, log zerolog.Logger) *PostHandler {
	return &PostHandler{
		services: services,
		log:      log.With().Str("handler", "post").Logger(),
	}
}

// List handles GET /posts
func (h *PostHandler) List(c *gin.Context) {
	list, err := h.services.Post.List(c.Request.Context(), query.Params{
		SortBy:   c.Query("sort_by"),
		AuthorID: c.Query("author_id"),
		Page:     c.Query("page"),
		PageSize: c.Query("page_size"),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// Retrieve handles GET /posts/:id
func (h *PostHandler) Retrieve(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	detail, err := h.services.Post.Retrieve(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// Create handles POST /posts
func (h *PostHandler) Create(c *gin.Context) {
	var req models.CreatePostRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}

	detail, err := h.services.Post.Create(c.Request.Context(), auth.FromContext(c), &req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, detail)
}

// Update handles PATCH and PUT /posts/:id. Both are partial updates.
func (h *PostHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var patch models.PostPatch
	if err := bindJSON(c, &patch); err != nil {
		writeError(c, h.log, err)
		return
	}

	if err := h.services.Post.Update(c.Request.Context(), auth.FromContext(c), id, &patch); err != nil {
		writeError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.services.Post.Delete(c.Request.Context(), auth.FromContext(c), id); err != nil {
		writeError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AppendComment handles POST /posts/:id/comments and its add_comment alias
func (h *PostHandler) AppendComment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.CreateCommentRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}

	comment, err := h.services.Post.AppendComment(c.Request.Context(), auth.FromContext(c), id, &req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}
