// Package card holds the words, gift details and colors of the greeting card.
package card

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/BurntSushi/toml"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Card is the content shown around the game
type Card struct {
	Title   string  `toml:"title"`
	Landing Landing `toml:"landing"`
	Game    Game    `toml:"game"`
	Reveal  Reveal  `toml:"reveal"`
	Gift    Gift    `toml:"gift"`
	Note    Note    `toml:"note"`
	Theme   Theme   `toml:"theme"`
}

// Landing is the greeting screen
type Landing struct {
	Greeting       string `toml:"greeting"`
	Invitation     string `toml:"invitation"`
	StartLabel     string `toml:"start_label"`
	ReturningLabel string `toml:"returning_label"`
}

// Game is the quiz screen
type Game struct {
	Heading string `toml:"heading"`
	Intro   string `toml:"intro"`
}

// Reveal is the screen before the gift
type Reveal struct {
	Heading  string `toml:"heading"`
	Teaser   string `toml:"teaser"`
	Revealed string `toml:"revealed"`
}

// Gift describes the present
type Gift struct {
	Heading   string `toml:"heading"`
	Summary   string `toml:"summary"`
	Date      string `toml:"date"`
	Location  string `toml:"location"`
	Details   string `toml:"details"`
	InfoURL   string `toml:"info_url"`
	MoreLabel string `toml:"more_label"`
	MoreURL   string `toml:"more_url"`
}

// Note is the closing message, written in markdown
type Note struct {
	Heading   string `toml:"heading"`
	Body      string `toml:"body"`
	Signature string `toml:"signature"`
}

// Theme holds the page colors
type Theme struct {
	Background  string `toml:"background_color"`
	Text        string `toml:"text_color"`
	ButtonText  string `toml:"button_text_color"`
	Button      string `toml:"button_color"`
	ButtonHover string `toml:"button_hover_color"`
	Accent      string `toml:"accent_color"`
	FontFamily  string `toml:"font_family"`
	Padding     string `toml:"padding"`
	Border      string `toml:"border_color"`
}

// Default returns the built-in card
func Default() *Card {
	return &Card{
		Title: "A Gift for You",
		Landing: Landing{
			Greeting:       "Hello! Good Morning.\nI hope you're having a wonderful holiday morning.",
			Invitation:     "Would you like to play a fun game to learn more about our backyard friends?",
			StartLabel:     "Click this button to start!",
			ReturningLabel: "Begin Your Morning Adventure!",
		},
		Game: Game{
			Heading: "Backyard Friends",
			Intro:   "Let's learn some fun facts about our backyard friends! Each correct guess adds a point!",
		},
		Reveal: Reveal{
			Heading:  "A Special Morning Gift",
			Teaser:   "Now for your surprise... tap to reveal!",
			Revealed: "Your gift awaits...",
		},
		Gift: Gift{
			Heading:   "A Gift For You",
			Summary:   "You get to create a beautiful glass flower at a hot glass studio!\nJoin me, or invite a friend to come along!",
			Date:      "To be scheduled",
			Location:  "The studio will send directions with the booking.",
			Details:   "Have fun playing with hot glass! You stretch and pull molten glass into a colorful flower while the studio handles the skilled part.",
			MoreLabel: "See More Classes",
		},
		Note: Note{
			Heading:   "A Note For You 💝",
			Body:      "Thank you for playing!\n\nI hope the **backyard friends** made you smile. 🐾",
			Signature: "With love",
		},
		Theme: Theme{
			Background:  "#f70696",
			Text:        "#ffffff",
			ButtonText:  "#333333",
			Button:      "#ffffff",
			ButtonHover: "#f0f0f0",
			Accent:      "#ffffff",
			FontFamily:  "serif",
			Padding:     "30px",
			Border:      "#ffffff",
		},
	}
}

// Load reads a TOML file over the defaults. An empty path returns Default().
func Load(path string) (*Card, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("read card %s: %w", path, err)
	}
	return c, nil
}

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))
	policy   = bluemonday.UGCPolicy()
)

// NoteHTML renders the note body to sanitized HTML
func (c *Card) NoteHTML() (template.HTML, error) {
	return RenderMarkdown(c.Note.Body)
}

// RenderMarkdown converts markdown to HTML with unsafe markup stripped
func RenderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes())), nil
}
