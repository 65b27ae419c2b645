package dto

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/highprosper/backend/internal/domain/identity"
)

// RegisterValidators installs the custom binding validators on gin's
// validator engine. Call once at startup before routes are mounted.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	// msisdn accepts anything the domain normalizer accepts
	_ = v.RegisterValidation("msisdn", func(fl validator.FieldLevel) bool {
		_, err := identity.NormalizeMSISDN(fl.Field().String())
		return err == nil
	})
}
