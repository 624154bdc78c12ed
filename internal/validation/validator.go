package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/strata-blog-api/internal/apperror"
	"github.com/strata-blog-api/internal/models"
)

// Validator checks request payloads before they reach the store
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := validator.New()

	// Report JSON field names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// ValidateCreatePost validates a new post
func (v *Validator) ValidateCreatePost(req *models.CreatePostRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	return v.structErrors(req)
}

// ValidatePatch validates the fields present in a partial update
func (v *Validator) ValidatePatch(patch *models.PostPatch) error {
	if patch.Empty() {
		return apperror.Validation("No fields to update.")
	}

	var fields []apperror.FieldError

	if patch.Title.Set {
		patch.Title.Value = strings.TrimSpace(patch.Title.Value)
		if patch.Title.Null {
			fields = append(fields, apperror.FieldError{Field: "title", Message: "title may not be null"})
		} else if err := v.validate.Var(patch.Title.Value, fmt.Sprintf("min=%d,max=%d", models.MinTitleLength, models.MaxTitleLength)); err != nil {
			fields = append(fields, apperror.FieldError{Field: "title", Message: titleMessage()})
		}
	}
	if patch.ShortDescription.Set && patch.ShortDescription.Null {
		fields = append(fields, apperror.FieldError{Field: "short_description", Message: "short_description may not be null"})
	}
	if patch.Content.Set && patch.Content.Null {
		fields = append(fields, apperror.FieldError{Field: "content", Message: "content may not be null"})
	}
	if patch.ImagePath.Set && !patch.ImagePath.Null {
		if err := v.validate.Var(patch.ImagePath.Value, "max=500"); err != nil {
			fields = append(fields, apperror.FieldError{Field: "image_path", Message: "image_path must be at most 500 characters"})
		}
	}

	if len(fields) > 0 {
		return apperror.Validation("Invalid input.", fields...)
	}
	return nil
}

// ValidateComment validates a new comment. Blank names and bodies count as empty.
func (v *Validator) ValidateComment(req *models.CreateCommentRequest) error {
	req.AuthorName = strings.TrimSpace(req.AuthorName)
	if strings.TrimSpace(req.Content) == "" {
		req.Content = ""
	}
	if req.AuthorName == "" || req.Content == "" {
		return apperror.Validation("Author name and content are required.", v.fieldErrors(v.validate.Struct(req))...)
	}
	return v.structErrors(req)
}

// ValidateUpdateUser validates a self-update of the user's display name
func (v *Validator) ValidateUpdateUser(req *models.UpdateUserRequest) error {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	return v.structErrors(req)
}

func (v *Validator) structErrors(s interface{}) error {
	fields := v.fieldErrors(v.validate.Struct(s))
	if len(fields) > 0 {
		return apperror.Validation("Invalid input.", fields...)
	}
	return nil
}

func (v *Validator) fieldErrors(err error) []apperror.FieldError {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperror.FieldError{{Field: "", Message: err.Error()}}
	}

	fields := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperror.FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return fields
}

func message(fe validator.FieldError) string {
	if fe.Field() == "title" && (fe.Tag() == "min" || fe.Tag() == "max") {
		return titleMessage()
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func titleMessage() string {
	return fmt.Sprintf("title must be between %d and %d characters", models.MinTitleLength, models.MaxTitleLength)
}
