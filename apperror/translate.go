package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

// FromMongo classifies a driver error. what names the resource in NotFound messages.
func FromMongo(err error, what string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return New(NotFound, fmt.Sprintf("%s not found", what), err)
	case mongo.IsDuplicateKeyError(err):
		return NewDuplicateKey("Duplicate field value entered", err)
	default:
		return NewInternal("Database error", err)
	}
}

// FromBinding turns a gin binding failure into a ValidationFailed or BadRequest error.
func FromBinding(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		messages := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			messages = append(messages, fieldMessage(fe))
		}
		return NewValidation(messages, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return New(BadRequest, "Request body is required", err)
	case errors.As(err, &syntaxErr):
		return New(BadRequest, "Malformed JSON body", err)
	case errors.As(err, &typeErr):
		return New(BadRequest, fmt.Sprintf("Invalid value for %s", typeErr.Field), err)
	default:
		return New(BadRequest, "Invalid request body", err)
	}
}

func fieldMessage(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Please add a %s", field)
	case "email":
		return "Please add a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return "Please use a valid URL with HTTP or HTTPS"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
