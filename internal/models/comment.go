package models

import (
	"time"
)

// Comment represents a comment on a post
type Comment struct {
	ID         int64     `json:"id" db:"id"`
	PostID     int64     `json:"-" db:"post_id"`
	AuthorName string    `json:"author_name" db:"author_name"`
	Content    string    `json:"content" db:"content"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// CreateCommentRequest is the body of POST /posts/:id/comments
type CreateCommentRequest struct {
	AuthorName string `json:"author_name" validate:"required,max=100"`
	Content    string `json:"content" validate:"required"`
}

// MaxAuthorNameLength is the maximum length of a comment's author name
const MaxAuthorNameLength = 100
