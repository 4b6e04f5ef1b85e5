package bootcamps

import (
	"errors"
	"slices"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidation installs the "career" tag on gin's validator.
func RegisterValidation() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	return v.RegisterValidation("career", func(fl validator.FieldLevel) bool {
		return slices.Contains(Careers, fl.Field().String())
	})
}
