package grading

import (
	"testing"

	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func singleMCQTest() *models.Test {
	return &models.Test{
		TestID:          "t1",
		DurationSeconds: 600,
		Questions: []models.Question{
			{Type: models.QuestionMCQ, Text: "Q1", Options: []string{"A", "B"}, Answer: str("A")},
		},
	}
}

func submissionWith(answers ...models.Answer) *models.Submission {
	return &models.Submission{SessionID: "s1", Answers: answers}
}

func TestGrade_CorrectAnswer(t *testing.T) {
	result := Grade(singleMCQTest(), submissionWith(models.Answer{QuestionText: "Q1", Answer: str("A")}))

	assert.Equal(t, "1/1", result.Score)
	require.Len(t, result.Answers, 1)
	assert.Equal(t, StatusCorrect, result.Answers[0].Status)
	assert.Nil(t, result.Answers[0].CorrectAnswer)
}

func TestGrade_IncorrectAnswer(t *testing.T) {
	result := Grade(singleMCQTest(), submissionWith(models.Answer{QuestionText: "Q1", Answer: str("B")}))

	assert.Equal(t, "0/1", result.Score)
	require.Len(t, result.Answers, 1)
	assert.Equal(t, StatusIncorrect, result.Answers[0].Status)
	require.NotNil(t, result.Answers[0].CorrectAnswer)
	assert.Equal(t, "A", *result.Answers[0].CorrectAnswer)

	student := result.Redacted()
	assert.Nil(t, student.Answers[0].CorrectAnswer)
	assert.Equal(t, "0/1", student.Score)
	// the review shape is untouched
	assert.NotNil(t, result.Answers[0].CorrectAnswer)
}

func TestGrade_CaseSensitive(t *testing.T) {
	result := Grade(singleMCQTest(), submissionWith(models.Answer{QuestionText: "Q1", Answer: str("a")}))
	assert.Equal(t, "0/1", result.Score)
}

func TestGrade_NullAnswerIsIncorrect(t *testing.T) {
	result := Grade(singleMCQTest(), submissionWith(models.Answer{QuestionText: "Q1"}))

	assert.Equal(t, "0/1", result.Score)
	assert.Equal(t, StatusIncorrect, result.Answers[0].Status)
}

func TestGrade_PendingAnswers(t *testing.T) {
	test := &models.Test{Questions: []models.Question{
		{Type: models.QuestionSubjective, Text: "Explain"},
	}}
	result := Grade(test, submissionWith(
		models.Answer{QuestionText: "Explain", Answer: str("Because")},
		models.Answer{QuestionText: "Unknown", Answer: str("X")},
	))

	assert.Equal(t, ScoreNotApplicable, result.Score)
	require.Len(t, result.Answers, 2)
	for _, a := range result.Answers {
		assert.Equal(t, StatusPending, a.Status)
		assert.Equal(t, models.QuestionSubjective, a.Type)
		assert.Nil(t, a.CorrectAnswer)
	}
}

func TestGrade_DeletedTest(t *testing.T) {
	result := Grade(nil, submissionWith(models.Answer{QuestionText: "Q1", Answer: str("A")}))

	assert.Equal(t, ScoreNotApplicable, result.Score)
	assert.Equal(t, StatusPending, result.Answers[0].Status)
}

func TestGrade_FirstQuestionWinsOnDuplicateText(t *testing.T) {
	test := &models.Test{Questions: []models.Question{
		{Type: models.QuestionMCQ, Text: "Q", Answer: str("A")},
		{Type: models.QuestionMCQ, Text: "Q", Answer: str("B")},
	}}
	result := Grade(test, submissionWith(models.Answer{QuestionText: "Q", Answer: str("A")}))

	assert.Equal(t, "1/1", result.Score)
}

func TestGrade_DenominatorCountsMCQAnswers(t *testing.T) {
	test := &models.Test{Questions: []models.Question{
		{Type: models.QuestionMCQ, Text: "M1", Answer: str("A")},
		{Type: models.QuestionMCQ, Text: "M2", Answer: str("B")},
		{Type: models.QuestionMCQ, Text: "M3", Answer: str("C")},
		{Type: models.QuestionSubjective, Text: "S1"},
	}}
	// M3 is left unanswered entirely, so it is not part of the fraction
	result := Grade(test, submissionWith(
		models.Answer{QuestionText: "M1", Answer: str("A")},
		models.Answer{QuestionText: "M2", Answer: str("A")},
		models.Answer{QuestionText: "S1", Answer: str("text")},
	))

	assert.Equal(t, 2, result.Graded)
	assert.Equal(t, 1, result.Correct)
	assert.Equal(t, "1/2", result.Score)
	assert.LessOrEqual(t, result.Correct, result.Graded)
}

func TestGrade_Idempotent(t *testing.T) {
	test := singleMCQTest()
	sub := submissionWith(
		models.Answer{QuestionText: "Q1", Answer: str("B")},
		models.Answer{QuestionText: "other", Answer: nil},
	)

	first := Grade(test, sub)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Grade(test, sub))
	}

	// inputs are not modified
	assert.Equal(t, "B", *sub.Answers[0].Answer)
	assert.Equal(t, "A", *test.Questions[0].Answer)
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "N/A", FormatScore(0, 0))
	assert.Equal(t, "3/4", FormatScore(3, 4))
}
