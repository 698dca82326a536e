// Package flow moves a visitor's session through the screens of the card.
package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/korjavin/backyardcard/ai"
	"github.com/korjavin/backyardcard/models"
)

// Notices shown to the visitor
const (
	NoticeGenerateFailed = "Failed to generate question, please try again!"
	NoticeNotConfigured  = "The quiz is unavailable: no API key has been configured."
	NoticeGameCrashed    = "Something went wrong in the game. Let's start over!"
	NoticeCrashed        = "Something went wrong. Returning to start..."
	NoticeCancelled      = "Request cancelled, please try again."
)

// AnswerLogger records answered questions
type AnswerLogger interface {
	SaveAnswer(ctx context.Context, rec models.AnswerRecord) error
}

// View is everything a front-end needs to draw one screen
type View struct {
	Screen          models.Screen
	Score           int
	Total           int
	Remaining       int
	Question        int
	Item            *models.QuizItem
	Answered        bool
	LastAnswer      string
	GlassRevealed   bool
	IntroPlayed     bool
	ShowMoreClasses bool
	Notices         []string
}

// Controller applies actions to sessions. It keeps no per-visitor state.
type Controller struct {
	questions ai.QuestionGenerator
	answers   AnswerLogger
}

// NewController creates a Controller. A nil generator disables the quiz; a nil
// logger skips answer recording.
func NewController(questions ai.QuestionGenerator, answers AnswerLogger) *Controller {
	return &Controller{questions: questions, answers: answers}
}

// Handle applies a to s and renders the resulting screen. It never panics;
// a failure inside a screen resets the session to the landing screen.
func (c *Controller) Handle(ctx context.Context, sessionID string, s *models.Session, a Action) (v View) {
	screen := s.Screen
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from panic while rendering", "screen", screen, "session", sessionID, "panic", r)
			notice := NoticeCrashed
			if screen == models.ScreenCritterGame {
				notice = NoticeGameCrashed
			}
			s.Reset()
			s.Screen = models.ScreenLanding
			v = c.view(s)
			v.Notices = append(v.Notices, notice)
		}
	}()

	var notices []string
	var showMore bool

	switch s.Screen {
	case models.ScreenLanding:
		c.landing(s, a)
	case models.ScreenCritterGame:
		c.critterGame(ctx, sessionID, s, a)
	case models.ScreenRevealGlass:
		c.revealGlass(s, a)
	case models.ScreenGiftCard:
		showMore = c.giftCard(s, a)
	case models.ScreenMessage:
		c.message(s, a)
	default:
		log.Warn("Unknown screen, sending visitor home", "screen", s.Screen, "session", sessionID)
		s.Screen = models.ScreenLanding
	}

	if err := s.Check(); err != nil {
		panic(err)
	}

	if s.Screen == models.ScreenCritterGame {
		screen = s.Screen
		notices = c.ensureQuestion(ctx, sessionID, s)
	}

	v = c.view(s)
	v.ShowMoreClasses = showMore
	v.Notices = notices
	return v
}

func (c *Controller) view(s *models.Session) View {
	return View{
		Screen:        s.Screen,
		Score:         s.Score,
		Total:         s.TotalQuestions,
		Remaining:     s.Remaining(),
		Question:      s.QuestionNumber,
		Item:          s.Current,
		Answered:      s.Answered,
		LastAnswer:    s.LastAnswer,
		GlassRevealed: s.GlassRevealed,
		IntroPlayed:   s.IntroPlayed,
	}
}

func (c *Controller) landing(s *models.Session, a Action) {
	if a.Kind != ActionStart {
		return
	}
	s.Reset()
	s.IntroPlayed = true
	s.Screen = models.ScreenCritterGame
}

// critterGame applies the quiz buttons
func (c *Controller) critterGame(ctx context.Context, sessionID string, s *models.Session, a Action) {
	switch a.Kind {
	case ActionAnswer:
		c.answer(ctx, sessionID, s, a)
	case ActionNext:
		if !s.Answered {
			return
		}
		if s.Finished() {
			s.Screen = models.ScreenRevealGlass
			return
		}
		s.Current = nil
		s.Answered = false
		s.LastAnswer = ""
	case ActionRestart:
		if s.Answered {
			s.Reset()
			s.Screen = models.ScreenCritterGame
		}
	}
}

// ensureQuestion fetches a question when the game screen has none.
// A failed fetch leaves the question count untouched.
func (c *Controller) ensureQuestion(ctx context.Context, sessionID string, s *models.Session) []string {
	if s.Current != nil {
		return nil
	}
	if c.questions == nil {
		return []string{NoticeNotConfigured}
	}

	item, err := c.questions.Generate(ctx)
	if err == nil && !item.Displayable() {
		err = fmt.Errorf("%w: no question or options in %+v", ai.ErrMalformedResponse, item)
	}
	if err != nil {
		log.Error("Question generation failed", "session", sessionID, "err", err)
		notice := NoticeGenerateFailed
		if errors.Is(err, context.Canceled) {
			notice = NoticeCancelled
		}
		return []string{notice}
	}

	s.Current = item
	s.QuestionNumber++
	return nil
}

// answer scores a press on the current question. Presses carrying another
// question number come from an old screen and are dropped.
func (c *Controller) answer(ctx context.Context, sessionID string, s *models.Session, a Action) {
	item := s.Current
	if a.Question != s.QuestionNumber {
		log.Warn("Ignoring answer for another question", "session", sessionID, "pressed", a.Question, "current", s.QuestionNumber)
		return
	}
	option := a.Option
	if s.Answered || item == nil || option < 0 || option >= len(item.Options) {
		return
	}

	s.Answered = true
	correct := item.IsCorrect(option)
	if correct {
		s.Score++
		s.LastAnswer = fmt.Sprintf("Correct! 🎉 %s", item.AdditionalFact)
	} else {
		s.LastAnswer = fmt.Sprintf("Not quite! The correct answer was %s! 🎓 %s", item.CorrectAnswer, item.AdditionalFact)
	}
	if s.Asked == nil {
		s.Asked = make(map[string]bool)
	}
	s.Asked[item.Question] = true

	if c.answers == nil {
		return
	}
	rec := models.AnswerRecord{
		SessionID: sessionID,
		Question:  item.Question,
		Chosen:    item.Options[option],
		Correct:   correct,
		Timestamp: time.Now(),
	}
	if err := c.answers.SaveAnswer(ctx, rec); err != nil {
		log.Error("Error saving answer", "session", sessionID, "err", err)
	}
}

func (c *Controller) revealGlass(s *models.Session, a Action) {
	switch a.Kind {
	case ActionReveal:
		s.GlassRevealed = true
	case ActionSeeGift:
		if s.GlassRevealed {
			s.Screen = models.ScreenGiftCard
		}
	}
}

func (c *Controller) giftCard(s *models.Session, a Action) (showMore bool) {
	switch a.Kind {
	case ActionMoreClasses:
		return true
	case ActionNote:
		s.Screen = models.ScreenMessage
	}
	return false
}

func (c *Controller) message(s *models.Session, a Action) {
	if a.Kind == ActionHome {
		s.Screen = models.ScreenLanding
	}
}
