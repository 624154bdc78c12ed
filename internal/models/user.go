package models

// User is the identity principal's stored profile
type User struct {
	ID    int64  `json:"id" db:"id"`
	Email string `json:"email" db:"email"`
	Name  string `json:"name" db:"name"`
}

// Author is the author projection embedded in post responses
type Author struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UpdateUserRequest is the body of PATCH /users/me
type UpdateUserRequest struct {
	Name *string `json:"name" validate:"required,max=255"`
}
