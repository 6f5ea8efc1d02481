package config

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// namespacePattern matches dot-separated identifiers such as "com.example.app"
var namespacePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidNamespace reports whether s is a usable modules base package.
func ValidNamespace(s string) bool {
	return namespacePattern.MatchString(s)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("namespace", func(fl validator.FieldLevel) bool {
		return ValidNamespace(fl.Field().String())
	})
	return v
}
