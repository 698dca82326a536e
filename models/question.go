package models

import "time"

// QuizItem is one generated trivia question
type QuizItem struct {
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	CorrectAnswer  string   `json:"correct_answer"`
	AdditionalFact string   `json:"additional_fact"`
}

// Displayable reports whether the item can be shown as a question with buttons.
// The correct answer is not checked against the options.
func (q *QuizItem) Displayable() bool {
	return q != nil && q.Question != "" && len(q.Options) > 0
}

// IsCorrect reports whether the option at index i is the correct answer
func (q *QuizItem) IsCorrect(i int) bool {
	if i < 0 || i >= len(q.Options) {
		return false
	}
	return q.Options[i] == q.CorrectAnswer
}

// AnswerRecord stores one answered question
type AnswerRecord struct {
	SessionID string
	Question  string
	Chosen    string
	Correct   bool
	Timestamp time.Time
}
