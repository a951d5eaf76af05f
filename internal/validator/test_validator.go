package validator

import (
	"fmt"
	"strings"

	"github.com/SAP-F-2025/proctor-service/internal/models"
)

// TestValidator checks the cross-question rules of a test definition that
// struct tags cannot express.
type TestValidator struct{}

func NewTestValidator() *TestValidator {
	return &TestValidator{}
}

// ValidateQuestions requires at least one question, unique question text and
// a correct answer on every mcq question.
func (v *TestValidator) ValidateQuestions(questions []models.Question) ValidationErrors {
	var errs ValidationErrors

	if len(questions) == 0 {
		errs = append(errs, ValidationError{
			Field:   "questions",
			Message: "must contain at least one question",
			Rule:    "required",
		})
		return errs
	}

	seen := make(map[string]int, len(questions))
	for i, q := range questions {
		field := fmt.Sprintf("questions[%d]", i)

		text := strings.TrimSpace(q.Text)
		if text == "" {
			errs = append(errs, ValidationError{Field: field + ".text", Message: "is required", Rule: "required"})
			continue
		}
		if first, dup := seen[text]; dup {
			errs = append(errs, ValidationError{
				Field:   field + ".text",
				Message: fmt.Sprintf("must not repeat question text within a test (same as question %d)", first+1),
				Value:   text,
				Rule:    "unique_text",
			})
		} else {
			seen[text] = i
		}

		switch q.Type {
		case models.QuestionMCQ:
			if err := v.validateMCQ(field, q); err != nil {
				errs = append(errs, *err)
			}
		case models.QuestionSubjective:
		default:
			errs = append(errs, ValidationError{
				Field:   field + ".type",
				Message: "must be a valid question type (mcq, subjective)",
				Value:   string(q.Type),
				Rule:    "question_type",
			})
		}
	}

	return errs
}

func (v *TestValidator) validateMCQ(field string, q models.Question) *ValidationError {
	if q.Answer == nil || strings.TrimSpace(*q.Answer) == "" {
		return &ValidationError{
			Field:   field + ".answer",
			Message: "must name the correct option for every mcq question",
			Rule:    "mcq_answer",
		}
	}
	if len(q.Options) == 0 {
		return nil
	}
	for _, opt := range q.Options {
		if opt == *q.Answer {
			return nil
		}
	}
	return &ValidationError{
		Field:   field + ".answer",
		Message: "must be one of the question options",
		Value:   *q.Answer,
		Rule:    "mcq_answer",
	}
}
