package validators

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,30}$`)

// Fragments rejected anywhere in user content, compared case-insensitively.
var unsafeFragments = []string{"<script", "javascript:", "vbscript:", "onload=", "onerror="}

// CustomValidator adapts go-playground/validator to echo.Validator.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator registers the custom tags: username, notblank, safecontent.
func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("safecontent", func(fl validator.FieldLevel) bool {
		return IsSafeContent(fl.Field().String())
	})
	return &CustomValidator{validator: v}
}

// Validate returns a 400 carrying the first failing field.
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, models.APIError{
			Code:    models.CodeValidationFailed,
			Message: describe(err),
		})
	}
	return nil
}

// IsSafeContent reports whether s is free of script injection fragments.
func IsSafeContent(s string) bool {
	lower := strings.ToLower(s)
	for _, f := range unsafeFragments {
		if strings.Contains(lower, f) {
			return false
		}
	}
	return true
}

func describe(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err.Error()
	}
	fe := errs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "min":
		return field + " must be at least " + fe.Param()
	case "len", "hexadecimal":
		return field + " is not a valid id"
	case "username":
		return field + " must be 3-30 characters of letters, numbers, dots, underscores or hyphens"
	case "safecontent":
		return field + " contains potentially unsafe content"
	case "email":
		return field + " must be a valid email address"
	case "url":
		return field + " must be a valid URL"
	}
	return field + " is invalid"
}
