package models

import (
	"bytes"
	"encoding/json"
	"time"
)

const (
	// MinTitleLength is the minimum number of characters in a post title
	MinTitleLength = 10
	// MaxTitleLength is the maximum number of characters in a post title
	MaxTitleLength = 200
)

// Post represents a stored blog post
type Post struct {
	ID               int64     `json:"id" db:"id"`
	Title            string    `json:"title" db:"title"`
	ShortDescription string    `json:"short_description" db:"short_description"`
	Content          string    `json:"content" db:"content"`
	ImagePath        *string   `json:"image_path" db:"image_path"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	AuthorID         int64     `json:"author_id" db:"author_id"`
}

// PostSummary is a list item: the post without its content, plus the last comment projection
type PostSummary struct {
	ID                int64      `json:"id"`
	Title             string     `json:"title"`
	ShortDescription  string     `json:"short_description"`
	CreatedAt         time.Time  `json:"created_at"`
	Author            Author     `json:"author"`
	ImagePath         *string    `json:"image_path"`
	LastCommentDate   *time.Time `json:"last_comment_date"`
	LastCommentAuthor *string    `json:"last_comment_author"`
}

// PostDetail is the full post with its comments, newest first
type PostDetail struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    Author    `json:"author"`
	ImagePath *string   `json:"image_path"`
	Comments  []Comment `json:"comments"`
}

// PostList is the paginated envelope returned by GET /posts
type PostList struct {
	TotalCount  int           `json:"total_count"`
	PageSize    int           `json:"page_size"`
	CurrentPage int           `json:"current_page"`
	TotalPages  int           `json:"total_pages"`
	Posts       []PostSummary `json:"posts"`
}

// CreatePostRequest is the body of POST /posts
type CreatePostRequest struct {
	Title            string  `json:"title" validate:"required,min=10,max=200"`
	ShortDescription string  `json:"short_description"`
	Content          string  `json:"content"`
	ImagePath        *string `json:"image_path" validate:"omitempty,max=500"`
}

// PostPatch carries the fields present in an update request. Absent fields stay untouched.
type PostPatch struct {
	Title            OptionalString `json:"title"`
	ShortDescription OptionalString `json:"short_description"`
	Content          OptionalString `json:"content"`
	ImagePath        OptionalString `json:"image_path"`
}

// Empty reports whether no recognized field was present
func (p PostPatch) Empty() bool {
	return !p.Title.Set && !p.ShortDescription.Set && !p.Content.Set && !p.ImagePath.Set
}

// OptionalString distinguishes an absent JSON key from an explicit null or a value
type OptionalString struct {
	Set   bool
	Null  bool
	Value string
}

// UnmarshalJSON is only invoked when the key is present in the document
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		o.Value = ""
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON renders an unset or null value as null
func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Some returns a present, non-null optional value
func Some(v string) OptionalString {
	return OptionalString{Set: true, Value: v}
}

// Null returns a present, explicit null value
func Null() OptionalString {
	return OptionalString{Set: true, Null: true}
}

// Ptr returns the value as a nullable pointer for storage
func (o OptionalString) Ptr() *string {
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}
