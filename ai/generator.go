package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/korjavin/backyardcard/models"
)

var (
	// ErrRemoteCall is returned when the text-generation backend fails
	ErrRemoteCall = errors.New("text generation failed")
	// ErrEmptyResponse is returned when the backend answers with no text
	ErrEmptyResponse = errors.New("LLM returned an empty response")
	// ErrMalformedResponse is returned when the answer is not valid JSON
	ErrMalformedResponse = errors.New("LLM response is not valid JSON")
)

// Animals the questions are about
var Animals = []string{
	"squirrel", "raccoon", "possum", "cardinal", "nuthatches",
	"blue jay", "deer", "butterfly", "hummingbird", "chipmunk",
}

// Topics a question can cover
var Topics = []string{
	"diet", "habitat", "behavior", "lifespan", "unique abilities", "communication",
}

// TextGenerator sends a prompt to a remote model and returns its raw text
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// QuestionGenerator produces quiz items
type QuestionGenerator interface {
	Generate(ctx context.Context) (*models.QuizItem, error)
}

// Generator builds trivia prompts and parses the model output.
// It is safe for concurrent use.
type Generator struct {
	backend TextGenerator

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a Generator on top of a text backend
func NewGenerator(backend TextGenerator) *Generator {
	seed := uint64(time.Now().UnixNano())
	return &Generator{
		backend: backend,
		rng:     rand.New(rand.NewPCG(seed, seed>>1)),
	}
}

// NewGeneratorWithRand is NewGenerator with a caller supplied random source
func NewGeneratorWithRand(backend TextGenerator, rng *rand.Rand) *Generator {
	return &Generator{backend: backend, rng: rng}
}

// Generate picks an animal and a topic, asks the model and parses the answer
func (g *Generator) Generate(ctx context.Context) (*models.QuizItem, error) {
	animal, topic := g.pick()
	log.Infof("Generating question about a %s's %s", animal, topic)

	startTime := time.Now()
	text, err := g.backend.GenerateText(ctx, BuildPrompt(animal, topic))
	if err != nil {
		log.Errorf("Error during LLM call after %v: %v", time.Since(startTime), err)
		return nil, fmt.Errorf("%w: %v", ErrRemoteCall, err)
	}
	log.Infof("LLM answered in %v (%d bytes)", time.Since(startTime), len(text))

	item, err := ParseQuizItem(text)
	if err != nil {
		log.Errorf("Could not parse LLM output: %v", err)
		return nil, err
	}
	return item, nil
}

// pick draws one animal and one topic; *rand.Rand is not goroutine safe
func (g *Generator) pick() (animal, topic string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Animals[g.rng.IntN(len(Animals))], Topics[g.rng.IntN(len(Topics))]
}

// BuildPrompt returns the question prompt for an animal and topic
func BuildPrompt(animal, topic string) string {
	return fmt.Sprintf(`Generate a question about a %s's %s.
Provide 3 multiple choice options, and indicate the single correct answer. The format should be a JSON object with keys for "question", "options" (which is an array), "correct_answer", and "additional_fact". Do not include a title.

Here is an example of the format you should use:
{
    "question": "What do I do with the acorns that I bury?",
    "options": ["Leave them be", "Remember their location for later", "Forget where I buried them"],
    "correct_answer": "Forget where I buried them",
    "additional_fact": "That helps plant thousands of trees!"
}
`, animal, topic)
}

var fencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```")

// ParseQuizItem strips an optional code fence and decodes the JSON object.
// Only JSON syntax is checked; fields are passed through as the model sent them.
func ParseQuizItem(text string) (*models.QuizItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	var item models.QuizItem
	if err := json.Unmarshal([]byte(text), &item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &item, nil
}
