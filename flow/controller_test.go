package flow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/korjavin/backyardcard/ai"
	"github.com/korjavin/backyardcard/models"
)

// scriptedGenerator hands out numbered questions, failing on demand.
type scriptedGenerator struct {
	calls int
	fail  error
	next  *models.QuizItem
	panic bool
}

func (g *scriptedGenerator) Generate(context.Context) (*models.QuizItem, error) {
	g.calls++
	if g.panic {
		panic("backend exploded")
	}
	if g.fail != nil {
		return nil, g.fail
	}
	if g.next != nil {
		item := g.next
		g.next = nil
		return item, nil
	}
	return &models.QuizItem{
		Question:       fmt.Sprintf("Question %d?", g.calls),
		Options:        []string{"right", "wrong", "also wrong"},
		CorrectAnswer:  "right",
		AdditionalFact: "Fact.",
	}, nil
}

type memoryAnswers struct {
	records []models.AnswerRecord
}

func (m *memoryAnswers) SaveAnswer(_ context.Context, rec models.AnswerRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func handle(t *testing.T, c *Controller, s *models.Session, a Action) View {
	t.Helper()
	v := c.Handle(context.Background(), "visitor", s, a)
	require.NoError(t, s.Check(), "invariant broken after %s", a.Kind)
	require.Equal(t, s.Screen, v.Screen)
	return v
}

func answerTo(s *models.Session, option int) Action {
	return Action{Kind: ActionAnswer, Question: s.QuestionNumber, Option: option}
}

func TestFullWalkthrough(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{}
	answers := &memoryAnswers{}
	c := NewController(gen, answers)
	s := models.NewSession(3)

	v := handle(t, c, s, Action{Kind: ActionView})
	require.Equal(t, models.ScreenLanding, v.Screen)
	require.False(t, v.IntroPlayed)

	v = handle(t, c, s, Action{Kind: ActionStart})
	require.Equal(t, models.ScreenCritterGame, v.Screen)
	require.True(t, v.IntroPlayed)
	require.NotNil(t, v.Item)
	require.Equal(t, 2, v.Remaining)

	for i := 0; i < 3; i++ {
		option := 0
		if i == 1 {
			option = 1
		}
		v = handle(t, c, s, answerTo(s, option))
		require.True(t, v.Answered)
		if option == 0 {
			require.Contains(t, v.LastAnswer, "Correct!")
		} else {
			require.Contains(t, v.LastAnswer, "Not quite! The correct answer was right!")
		}

		v = handle(t, c, s, Action{Kind: ActionNext})
	}

	require.Equal(t, models.ScreenRevealGlass, v.Screen)
	require.Equal(t, 2, v.Score)
	require.Equal(t, 3, gen.calls)
	require.Len(t, s.Asked, 3)
	require.Len(t, answers.records, 3)
	require.False(t, answers.records[1].Correct)
	require.Equal(t, "wrong", answers.records[1].Chosen)

	v = handle(t, c, s, Action{Kind: ActionSeeGift})
	require.Equal(t, models.ScreenRevealGlass, v.Screen, "gift stays hidden until revealed")

	v = handle(t, c, s, Action{Kind: ActionReveal})
	require.True(t, v.GlassRevealed)

	v = handle(t, c, s, Action{Kind: ActionSeeGift})
	require.Equal(t, models.ScreenGiftCard, v.Screen)

	v = handle(t, c, s, Action{Kind: ActionMoreClasses})
	require.Equal(t, models.ScreenGiftCard, v.Screen)
	require.True(t, v.ShowMoreClasses)

	v = handle(t, c, s, Action{Kind: ActionView})
	require.False(t, v.ShowMoreClasses)

	v = handle(t, c, s, Action{Kind: ActionNote})
	require.Equal(t, models.ScreenMessage, v.Screen)

	v = handle(t, c, s, Action{Kind: ActionHome})
	require.Equal(t, models.ScreenLanding, v.Screen)
	require.True(t, v.IntroPlayed, "returning visitors keep the intro flag")
}

func TestNextAfterLastQuestionRevealsRegardlessOfScore(t *testing.T) {
	t.Parallel()

	c := NewController(&scriptedGenerator{}, nil)
	s := models.NewSession(2)
	handle(t, c, s, Action{Kind: ActionStart})

	for i := 0; i < 2; i++ {
		handle(t, c, s, answerTo(s, 2))
		v := handle(t, c, s, Action{Kind: ActionNext})
		if i == 0 {
			require.Equal(t, models.ScreenCritterGame, v.Screen)
		} else {
			require.Equal(t, models.ScreenRevealGlass, v.Screen)
			require.Equal(t, 0, v.Score)
		}
	}
}

func TestNextRequiresAnswer(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{}
	c := NewController(gen, nil)
	s := models.NewSession(5)
	handle(t, c, s, Action{Kind: ActionStart})
	item := s.Current

	v := handle(t, c, s, Action{Kind: ActionNext})
	require.Same(t, item, v.Item)
	require.Equal(t, 1, gen.calls)

	v = handle(t, c, s, Action{Kind: ActionRestart})
	require.Same(t, item, v.Item, "restart is only offered after answering")
}

func TestAnswerTwiceScoresOnce(t *testing.T) {
	t.Parallel()

	c := NewController(&scriptedGenerator{}, nil)
	s := models.NewSession(5)
	handle(t, c, s, Action{Kind: ActionStart})
	handle(t, c, s, answerTo(s, 0))
	v := handle(t, c, s, answerTo(s, 0))
	require.Equal(t, 1, v.Score)

	s2 := models.NewSession(5)
	handle(t, c, s2, Action{Kind: ActionStart})
	v = handle(t, c, s2, answerTo(s2, 9))
	require.False(t, v.Answered)
}

func TestStaleAnswerIsDropped(t *testing.T) {
	t.Parallel()

	answers := &memoryAnswers{}
	c := NewController(&scriptedGenerator{}, answers)
	s := models.NewSession(5)
	handle(t, c, s, Action{Kind: ActionStart})

	first := answerTo(s, 1)
	handle(t, c, s, first)
	v := handle(t, c, s, Action{Kind: ActionNext})
	require.Equal(t, "Question 2?", v.Item.Question)
	require.Equal(t, 2, v.Question)

	v = handle(t, c, s, first)
	require.False(t, v.Answered, "a press from question 1 must not answer question 2")
	require.Empty(t, v.LastAnswer)
	require.Len(t, s.Asked, 1)
	require.Len(t, answers.records, 1)

	v = handle(t, c, s, answerTo(s, 0))
	require.True(t, v.Answered)
	require.Equal(t, 1, v.Score)
}

func TestRestartAfterAnswering(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{}
	c := NewController(gen, nil)
	s := models.NewSession(5)
	handle(t, c, s, Action{Kind: ActionStart})
	handle(t, c, s, answerTo(s, 0))

	v := handle(t, c, s, Action{Kind: ActionRestart})
	require.Equal(t, models.ScreenCritterGame, v.Screen)
	require.Equal(t, 0, v.Score)
	require.False(t, v.Answered)
	require.Empty(t, s.Asked)
	require.Equal(t, 1, s.QuestionNumber, "a fresh question is fetched for the new game")
	require.Equal(t, "Question 2?", v.Item.Question)
}

func TestGenerationFailureDoesNotAdvance(t *testing.T) {
	t.Parallel()

	for _, failure := range []error{
		fmt.Errorf("%w: boom", ai.ErrRemoteCall),
		ai.ErrEmptyResponse,
		fmt.Errorf("%w: unexpected token", ai.ErrMalformedResponse),
	} {
		gen := &scriptedGenerator{fail: failure}
		c := NewController(gen, nil)
		s := models.NewSession(5)

		v := handle(t, c, s, Action{Kind: ActionStart})
		require.Equal(t, models.ScreenCritterGame, v.Screen)
		require.Nil(t, v.Item)
		require.Equal(t, []string{NoticeGenerateFailed}, v.Notices)
		require.Equal(t, 0, s.QuestionNumber)

		// the visitor tries again by reloading
		gen.fail = nil
		v = handle(t, c, s, Action{Kind: ActionView})
		require.NotNil(t, v.Item)
		require.Empty(t, v.Notices)
		require.Equal(t, 1, s.QuestionNumber)
	}
}

func TestUndisplayableItemIsRejected(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{next: &models.QuizItem{Question: "Where?"}}
	c := NewController(gen, nil)
	s := models.NewSession(5)

	v := handle(t, c, s, Action{Kind: ActionStart})
	require.Nil(t, v.Item)
	require.Equal(t, []string{NoticeGenerateFailed}, v.Notices)
	require.Equal(t, 0, s.QuestionNumber)
}

func TestCorrectAnswerOutsideOptionsPassesThrough(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{next: &models.QuizItem{
		Question:      "What do possums eat?",
		Options:       []string{"Ticks", "Rocks", "Glass"},
		CorrectAnswer: "Everything",
	}}
	c := NewController(gen, nil)
	s := models.NewSession(5)
	handle(t, c, s, Action{Kind: ActionStart})

	v := handle(t, c, s, answerTo(s, 0))
	require.Equal(t, 0, v.Score)
	require.Contains(t, v.LastAnswer, "Everything")
}

func TestMissingGeneratorShowsConfigNotice(t *testing.T) {
	t.Parallel()

	c := NewController(nil, nil)
	s := models.NewSession(5)
	v := handle(t, c, s, Action{Kind: ActionStart})
	require.Equal(t, models.ScreenCritterGame, v.Screen)
	require.Equal(t, []string{NoticeNotConfigured}, v.Notices)
	require.Nil(t, v.Item)
}

func TestPanicInGameResetsToLanding(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{}
	c := NewController(gen, nil)
	s := models.NewSession(5)
	handle(t, c, s, Action{Kind: ActionStart})
	handle(t, c, s, answerTo(s, 0))

	gen.panic = true
	v := handle(t, c, s, Action{Kind: ActionNext})
	require.Equal(t, models.ScreenLanding, v.Screen)
	require.Equal(t, []string{NoticeGameCrashed}, v.Notices)
	require.Equal(t, 0, s.Score)
	require.Equal(t, 0, s.QuestionNumber)
	require.Nil(t, s.Current)
}

func TestInconsistentSessionResetsToLanding(t *testing.T) {
	t.Parallel()

	c := NewController(&scriptedGenerator{}, nil)
	s := models.NewSession(5)
	s.Screen = models.ScreenGiftCard
	s.Score = 4
	s.QuestionNumber = 2

	v := c.Handle(context.Background(), "visitor", s, Action{Kind: ActionView})
	require.Equal(t, models.ScreenLanding, v.Screen)
	require.Equal(t, []string{NoticeCrashed}, v.Notices)
	require.NoError(t, s.Check())
}

func TestUnknownScreenGoesHome(t *testing.T) {
	t.Parallel()

	c := NewController(&scriptedGenerator{}, nil)
	s := models.NewSession(5)
	s.Screen = models.ParseScreen("treehouse")

	v := handle(t, c, s, Action{Kind: ActionNote})
	require.Equal(t, models.ScreenLanding, v.Screen)
	require.Empty(t, v.Notices)
}

func TestIrrelevantActionsAreIgnored(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{}
	c := NewController(gen, nil)
	s := models.NewSession(5)

	for _, kind := range []ActionKind{ActionNext, ActionReveal, ActionNote, ActionAnswer, ActionHome} {
		v := handle(t, c, s, Action{Kind: kind})
		require.Equal(t, models.ScreenLanding, v.Screen)
	}
	require.Zero(t, gen.calls)
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()

	c := NewController(&scriptedGenerator{fail: fmt.Errorf("%w: %w", ai.ErrRemoteCall, context.Canceled)}, nil)
	s := models.NewSession(5)
	v := handle(t, c, s, Action{Kind: ActionStart})
	require.Len(t, v.Notices, 1)
	require.Equal(t, []string{NoticeCancelled}, v.Notices)
}

func TestParseAction(t *testing.T) {
	t.Parallel()

	require.Equal(t, Action{Kind: ActionAnswer, Question: 4, Option: 2}, ParseAction("answer", 4, 2))
	require.Equal(t, Action{Kind: ActionSeeGift}, ParseAction("see_gift", 0, 0))
	require.Equal(t, Action{Kind: ActionView}, ParseAction("launch_rockets", 1, 3))
	require.Equal(t, "more_classes", ActionMoreClasses.String())
}
