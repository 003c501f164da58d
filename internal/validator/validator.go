// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"dashboard/internal/changelog"
)

// usernameRegex mirrors the usual account-name charset: letters, digits
// and @ . + - _
var usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]{1,150}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn adds the custom rules to v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("username", validateUsername)
	_ = v.RegisterValidation("action_flag", validateActionFlag)
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

func validateActionFlag(fl validator.FieldLevel) bool {
	return changelog.ActionFlag(fl.Field().Int()).Valid()
}
