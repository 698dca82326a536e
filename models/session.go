package models

import "fmt"

// DefaultTotalQuestions is the number of questions in one game
const DefaultTotalQuestions = 5

// Screen identifies one step of the card
type Screen int

const (
	// ScreenUnknown is the zero value and any tag that could not be decoded
	ScreenUnknown Screen = iota
	ScreenLanding
	ScreenCritterGame
	ScreenRevealGlass
	ScreenGiftCard
	ScreenMessage
)

var screenNames = map[Screen]string{
	ScreenLanding:     "landing",
	ScreenCritterGame: "critter_game",
	ScreenRevealGlass: "reveal_glass",
	ScreenGiftCard:    "gift_card",
	ScreenMessage:     "message_screen",
}

func (s Screen) String() string {
	if name, ok := screenNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseScreen maps a tag back to a Screen. Unrecognized tags yield ScreenUnknown.
func ParseScreen(tag string) Screen {
	for s, name := range screenNames {
		if name == tag {
			return s
		}
	}
	return ScreenUnknown
}

// MarshalText implements encoding.TextMarshaler
func (s Screen) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It never fails: unknown
// tags are kept as ScreenUnknown so the controller can send the visitor home.
func (s *Screen) UnmarshalText(text []byte) error {
	*s = ParseScreen(string(text))
	return nil
}

// Session tracks one visitor's progress through the card
type Session struct {
	Screen         Screen          `json:"screen"`
	Score          int             `json:"score"`
	QuestionNumber int             `json:"question_number"`
	Asked          map[string]bool `json:"asked"`
	Answered       bool            `json:"answered"`
	GlassRevealed  bool            `json:"glass_revealed"`
	IntroPlayed    bool            `json:"intro_played"`
	Current        *QuizItem       `json:"current,omitempty"`
	LastAnswer     string          `json:"last_answer,omitempty"`
	TotalQuestions int             `json:"total_questions"`
}

// NewSession creates a session on the landing screen
func NewSession(total int) *Session {
	if total <= 0 {
		total = DefaultTotalQuestions
	}
	return &Session{
		Screen:         ScreenLanding,
		Asked:          make(map[string]bool),
		TotalQuestions: total,
	}
}

// Reset clears game progress and flags. The screen is left to the caller.
func (s *Session) Reset() {
	s.Score = 0
	s.QuestionNumber = 0
	s.Asked = make(map[string]bool)
	s.Answered = false
	s.GlassRevealed = false
	s.IntroPlayed = false
	s.Current = nil
	s.LastAnswer = ""
}

// Remaining returns how many questions are left in the game
func (s *Session) Remaining() int {
	if r := s.TotalQuestions - s.QuestionNumber; r > 0 {
		return r
	}
	return 0
}

// Finished reports whether every question of the game has been asked
func (s *Session) Finished() bool {
	return s.QuestionNumber >= s.TotalQuestions
}

// Check verifies score <= questions asked <= total
func (s *Session) Check() error {
	if s.Score < 0 || s.Score > s.QuestionNumber || s.QuestionNumber > s.TotalQuestions {
		return fmt.Errorf("inconsistent session: score=%d asked=%d total=%d",
			s.Score, s.QuestionNumber, s.TotalQuestions)
	}
	return nil
}
