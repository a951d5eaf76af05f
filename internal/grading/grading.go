// Package grading scores a submission against its test definition. Grading
// never mutates its inputs and gives the same result for the same inputs.
package grading

import (
	"fmt"

	"github.com/SAP-F-2025/proctor-service/internal/models"
)

type Status string

const (
	StatusCorrect   Status = "correct"
	StatusIncorrect Status = "incorrect"
	StatusPending   Status = "pending"
)

// ScoreNotApplicable is reported when no answer joined to an mcq question.
const ScoreNotApplicable = "N/A"

type AnswerResult struct {
	QuestionText string              `json:"question_text"`
	Answer       *string             `json:"answer"`
	Type         models.QuestionType `json:"type"`
	Status       Status              `json:"status"`
	// CorrectAnswer is only filled for incorrect mcq answers, and only in
	// the review shape.
	CorrectAnswer *string `json:"correct_answer"`
}

type Result struct {
	Correct int            `json:"correct"`
	Graded  int            `json:"graded"`
	Score   string         `json:"score"`
	Answers []AnswerResult `json:"answers"`
}

// questionIndex maps question text to the first question carrying it.
type questionIndex map[string]*models.Question

func indexQuestions(test *models.Test) questionIndex {
	index := make(questionIndex)
	if test == nil {
		return index
	}
	for i := range test.Questions {
		q := &test.Questions[i]
		if _, seen := index[q.Text]; !seen {
			index[q.Text] = q
		}
	}
	return index
}

// Grade joins every answer to its question by text. An mcq question counts
// toward the score and is correct only on an exact match; a missing answer
// is incorrect. Subjective questions and answers that match no question stay
// pending. A nil test grades every answer as pending.
//
// The result is in the review shape; use Redacted before showing it to a
// student.
func Grade(test *models.Test, submission *models.Submission) *Result {
	index := indexQuestions(test)
	result := &Result{Answers: make([]AnswerResult, 0, len(submission.Answers))}

	for _, a := range submission.Answers {
		entry := AnswerResult{
			QuestionText: a.QuestionText,
			Answer:       copyString(a.Answer),
			Type:         models.QuestionSubjective,
			Status:       StatusPending,
		}

		if q, ok := index[a.QuestionText]; ok {
			entry.Type = q.Type
			if q.IsMCQ() {
				result.Graded++
				if a.Answer != nil && q.Answer != nil && *a.Answer == *q.Answer {
					result.Correct++
					entry.Status = StatusCorrect
				} else {
					entry.Status = StatusIncorrect
					entry.CorrectAnswer = copyString(q.Answer)
				}
			}
		}

		result.Answers = append(result.Answers, entry)
	}

	result.Score = FormatScore(result.Correct, result.Graded)
	return result
}

// Redacted returns a copy without any correct answers.
func (r *Result) Redacted() *Result {
	c := *r
	c.Answers = make([]AnswerResult, len(r.Answers))
	for i, a := range r.Answers {
		a.CorrectAnswer = nil
		c.Answers[i] = a
	}
	return &c
}

func FormatScore(correct, graded int) string {
	if graded == 0 {
		return ScoreNotApplicable
	}
	return fmt.Sprintf("%d/%d", correct, graded)
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
