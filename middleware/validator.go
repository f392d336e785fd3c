package middleware

import (
	"sync"

	"github.com/Bekzhanizb/habitly/utils"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	validate     = validator.New()
	registerOnce sync.Once
)

// RegisterValidators adds the calendar_date tag (YYYY-MM-DD) to both the
// package validator and gin's binding validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		_ = validate.RegisterValidation("calendar_date", calendarDate)
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("calendar_date", calendarDate)
		}
	})
}

func calendarDate(fl validator.FieldLevel) bool {
	return utils.IsValidDate(fl.Field().String())
}

// Helper function used inside handlers:
func ValidateStruct(s interface{}) error {
	RegisterValidators()
	return validate.Struct(s)
}
