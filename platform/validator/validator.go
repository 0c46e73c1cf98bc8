// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import "github.com/go-playground/validator/v10"

// Rounds are the evaluation rounds an assignment or feedback record belongs to.
var Rounds = []string{"screening", "pitching"}

// FeedbackKinds are the content variants managed per startup and round.
var FeedbackKinds = []string{"custom_email", "vc_feedback"}

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the domain tags `round` and
// `feedbackkind` registered.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("round", oneOf(Rounds))
	_ = v.RegisterValidation("feedbackkind", oneOf(FeedbackKinds))
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, a := range allowed {
			if value == a {
				return true
			}
		}
		return false
	}
}
