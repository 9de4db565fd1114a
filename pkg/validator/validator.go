package validator

import (
	"github.com/go-playground/validator/v10"

	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
)

// CustomValidator implements echo.Validator using go-playground/validator
type CustomValidator struct {
	v *validator.Validate
}

// New creates a new CustomValidator instance with the "meetingid" tag
// registered.
func New() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("meetingid", validateMeetingID)
	return &CustomValidator{v: v}
}

// Validate performs struct validation
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

func validateMeetingID(fl validator.FieldLevel) bool {
	return entities.ValidMeetingID(fl.Field().String())
}
