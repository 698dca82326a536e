package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResetRestoresDefaults(t *testing.T) {
	t.Parallel()

	s := NewSession(5)
	s.Screen = ScreenRevealGlass
	s.Score = 3
	s.QuestionNumber = 4
	s.Asked["Why do squirrels bury acorns?"] = true
	s.Answered = true
	s.GlassRevealed = true
	s.IntroPlayed = true
	s.Current = &QuizItem{Question: "q", Options: []string{"a"}}
	s.LastAnswer = "Correct!"

	s.Reset()

	require.Equal(t, 0, s.Score)
	require.Equal(t, 0, s.QuestionNumber)
	require.Empty(t, s.Asked)
	require.False(t, s.Answered)
	require.False(t, s.GlassRevealed)
	require.False(t, s.IntroPlayed)
	require.Nil(t, s.Current)
	require.Empty(t, s.LastAnswer)
	require.Equal(t, ScreenRevealGlass, s.Screen, "reset leaves the screen to the caller")
	require.Equal(t, 5, s.TotalQuestions)
}

func TestNewSessionDefaultsTotal(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultTotalQuestions, NewSession(0).TotalQuestions)
	require.Equal(t, ScreenLanding, NewSession(3).Screen)
}

func TestCheck(t *testing.T) {
	t.Parallel()

	s := NewSession(2)
	require.NoError(t, s.Check())

	s.QuestionNumber = 1
	s.Score = 2
	require.Error(t, s.Check())

	s.Score = 1
	s.QuestionNumber = 3
	require.Error(t, s.Check())
}

func TestScreenJSON(t *testing.T) {
	t.Parallel()

	s := NewSession(5)
	s.Screen = ScreenGiftCard
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.Contains(t, string(data), `"screen":"gift_card"`)

	var decoded Session
	require.NoError(t, json.Unmarshal([]byte(`{"screen":"secret_lair","total_questions":5}`), &decoded))
	require.Equal(t, ScreenUnknown, decoded.Screen)
}

func TestQuizItemIsCorrect(t *testing.T) {
	t.Parallel()

	q := &QuizItem{
		Question:      "What do I do with the acorns that I bury?",
		Options:       []string{"Leave them be", "Remember their location for later", "Forget where I buried them"},
		CorrectAnswer: "Forget where I buried them",
	}
	require.True(t, q.Displayable())
	require.True(t, q.IsCorrect(2))
	require.False(t, q.IsCorrect(0))
	require.False(t, q.IsCorrect(7))

	require.False(t, (&QuizItem{Question: "no options"}).Displayable())
}
