package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps one go-playground instance with the proctoring rules
// registered, plus the cross-question checks for test definitions.
type Validator struct {
	structValidator *validator.Validate
	testValidator   *TestValidator
}

func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	v.RegisterValidation("question_type", validateQuestionType)
	v.RegisterValidation("user_role", validateUserRole)
	v.RegisterValidation("log_type", validateLogType)

	return &Validator{
		structValidator: v,
		testValidator:   NewTestValidator(),
	}
}

// Validate checks struct tags. Field failures come back as ValidationErrors
// named by their json keys.
func (v *Validator) Validate(s interface{}) error {
	err := v.structValidator.Struct(s)
	if err == nil {
		return nil
	}
	if errs := ToValidationErrors(err); len(errs) > 0 {
		return errs
	}
	return err
}

func (v *Validator) Test() *TestValidator {
	return v.testValidator
}

// jsonFieldName reports fields the way clients spell them.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

var logTypePattern = regexp.MustCompile(`^[a-z][a-z_]{0,31}$`)

func validateQuestionType(fl validator.FieldLevel) bool {
	switch models.QuestionType(fl.Field().String()) {
	case models.QuestionMCQ, models.QuestionSubjective:
		return true
	}
	return false
}

func validateUserRole(fl validator.FieldLevel) bool {
	switch models.UserRole(fl.Field().String()) {
	case models.RoleStudent, models.RoleAdmin:
		return true
	}
	return false
}

// Clients send free-form log categories (info, warning, error, ...), so only
// the shape is checked.
func validateLogType(fl validator.FieldLevel) bool {
	return logTypePattern.MatchString(fl.Field().String())
}
