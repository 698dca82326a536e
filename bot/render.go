package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/korjavin/backyardcard/card"
	"github.com/korjavin/backyardcard/flow"
	"github.com/korjavin/backyardcard/models"
)

func button(label string, kind flow.ActionKind) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, callbackData(kind)))
}

// renderView turns a screen into message text and its buttons
func renderView(c *card.Card, v flow.View) (string, *tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	for _, n := range v.Notices {
		sb.WriteString("⚠️ " + n + "\n\n")
	}

	var rows [][]tgbotapi.InlineKeyboardButton

	switch v.Screen {
	case models.ScreenCritterGame:
		fmt.Fprintf(&sb, "%s\n\nScore: %d | Questions Remaining: %d\n", c.Game.Heading, v.Score, v.Remaining)
		if v.Item == nil {
			rows = append(rows, button("Try again", flow.ActionView))
			break
		}
		sb.WriteString("\n" + v.Item.Question + "\n")
		if !v.Answered {
			for i, opt := range v.Item.Options {
				data := fmt.Sprintf("%s%s:%d:%d", callbackPrefix, flow.ActionAnswer, v.Question, i)
				rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(opt, data)))
			}
			break
		}
		sb.WriteString("\n" + v.LastAnswer + "\n")
		rows = append(rows, button("Next Fact", flow.ActionNext), button("Restart Game", flow.ActionRestart))

	case models.ScreenRevealGlass:
		fmt.Fprintf(&sb, "%s\n\nYou did great! Final Score: %d/%d\n\n", c.Reveal.Heading, v.Score, v.Total)
		if v.GlassRevealed {
			sb.WriteString(c.Reveal.Revealed)
			rows = append(rows, button("See Your Gift", flow.ActionSeeGift))
		} else {
			sb.WriteString(c.Reveal.Teaser)
			rows = append(rows, button("Reveal Your Gift", flow.ActionReveal))
		}

	case models.ScreenGiftCard:
		fmt.Fprintf(&sb, "%s\n\n%s\n\nDate: %s\nLocation: %s\n\n%s", c.Gift.Heading, c.Gift.Summary, c.Gift.Date, c.Gift.Location, c.Gift.Details)
		if c.Gift.InfoURL != "" {
			sb.WriteString("\n\nMore information: " + c.Gift.InfoURL)
		}
		if v.ShowMoreClasses && c.Gift.MoreURL != "" {
			sb.WriteString("\n\n" + c.Gift.MoreLabel + ": " + c.Gift.MoreURL)
		}
		if c.Gift.MoreURL != "" && !v.ShowMoreClasses {
			rows = append(rows, button(c.Gift.MoreLabel, flow.ActionMoreClasses))
		}
		rows = append(rows, button("A Note", flow.ActionNote))

	case models.ScreenMessage:
		fmt.Fprintf(&sb, "%s\n\n%s", c.Note.Heading, c.Note.Body)
		if c.Note.Signature != "" {
			sb.WriteString("\n\n" + c.Note.Signature)
		}
		rows = append(rows, button("Back to the start", flow.ActionHome))

	default:
		sb.WriteString(c.Landing.Greeting + "\n\n")
		if v.IntroPlayed {
			rows = append(rows, button(c.Landing.ReturningLabel, flow.ActionStart))
		} else {
			sb.WriteString(c.Landing.Invitation)
			rows = append(rows, button(c.Landing.StartLabel, flow.ActionStart))
		}
	}

	text := strings.TrimSpace(sb.String())
	if len(rows) == 0 {
		return text, nil
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return text, &keyboard
}
