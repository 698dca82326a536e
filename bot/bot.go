package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/korjavin/backyardcard/card"
	"github.com/korjavin/backyardcard/flow"
	"github.com/korjavin/backyardcard/models"
)

const (
	cmdStart = "start"
	cmdStat  = "stat"
	cmdHelp  = "help"

	callbackPrefix = "act:"
)

// Store is the session storage the bot needs
type Store interface {
	LoadSession(ctx context.Context, id string) (*models.Session, error)
	SaveSession(ctx context.Context, id string, s *models.Session) error
	GetSessionStats(ctx context.Context, id string) (correct int, incorrect int, err error)
	RecentAnswers(ctx context.Context, id string, limit int) ([]models.AnswerRecord, error)
}

// Bot represents the Telegram bot
type Bot struct {
	api   *tgbotapi.BotAPI
	ctrl  *flow.Controller
	store Store
	card  *card.Card
}

// New creates a new bot instance
func New(token string, debug bool, ctrl *flow.Controller, store Store, c *card.Card) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	botAPI.Debug = debug
	log.Infof("Authorized on Telegram account %s", botAPI.Self.UserName)

	return &Bot{
		api:   botAPI,
		ctrl:  ctrl,
		store: store,
		card:  c,
	}, nil
}

// Start listens for updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) {
	log.Info("Starting bot polling...")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping bot polling")
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			} else if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			}
		}
	}
}

// senderName tolerates a missing sender, which Telegram omits for channel posts
func senderName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return u.UserName
}

func sessionKey(chatID int64) string {
	return "tg-" + strconv.FormatInt(chatID, 10)
}

// handleMessage processes incoming messages
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	log.Info("Received message", "from", senderName(message.From), "chat", chatID, "text", message.Text)

	switch message.Command() {
	case cmdStart:
		b.step(ctx, chatID, func(s *models.Session) flow.Action {
			s.Screen = models.ScreenLanding
			return flow.Action{Kind: flow.ActionView}
		})
	case cmdStat:
		b.handleStatCommand(ctx, chatID)
	case cmdHelp:
		b.sendMessage(chatID, "Use /start to open your card, /stat to see how you did, and the buttons to play along.")
	default:
		b.step(ctx, chatID, func(*models.Session) flow.Action {
			return flow.Action{Kind: flow.ActionView}
		})
	}
}

// handleCallback processes inline button presses
func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	log.Info("Handling callback", "from", senderName(callback.From), "data", callback.Data)

	// Acknowledge right away so Telegram stops the spinner even if generation is slow
	b.sendCallbackResponse(callback.ID, "")

	if callback.Message == nil {
		return
	}
	action, ok := parseCallback(callback.Data)
	if !ok {
		log.Warn("Invalid callback data", "data", callback.Data)
		return
	}
	b.step(ctx, callback.Message.Chat.ID, func(*models.Session) flow.Action { return action })
}

// step loads the chat's session, applies one action and sends the result
func (b *Bot) step(ctx context.Context, chatID int64, prepare func(*models.Session) flow.Action) {
	id := sessionKey(chatID)
	sess, err := b.store.LoadSession(ctx, id)
	if err != nil {
		log.Error("Error loading session", "chat", chatID, "err", err)
		b.sendMessage(chatID, "Sorry, I couldn't load your card. Please try again later.")
		return
	}

	view := b.ctrl.Handle(ctx, id, sess, prepare(sess))

	if err := b.store.SaveSession(ctx, id, sess); err != nil {
		log.Error("Error saving session", "chat", chatID, "err", err)
	}

	text, keyboard := renderView(b.card, view)
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		log.Error("Error sending screen", "chat", chatID, "err", err)
	}
}

// handleStatCommand reports answers over every game played in this chat
func (b *Bot) handleStatCommand(ctx context.Context, chatID int64) {
	id := sessionKey(chatID)
	correct, incorrect, err := b.store.GetSessionStats(ctx, id)
	if err != nil {
		log.Error("Error getting stats", "chat", chatID, "err", err)
		b.sendMessage(chatID, "Sorry, I couldn't retrieve your statistics. Please try again later.")
		return
	}

	total := correct + incorrect
	var accuracy float64
	if total > 0 {
		accuracy = float64(correct) / float64(total) * 100
	}
	statMessage := fmt.Sprintf("📊 Your backyard trivia:\n\nQuestions answered: %d\nCorrect: %d ✅\nIncorrect: %d ❌\nAccuracy: %.1f%%",
		total, correct, incorrect, accuracy)

	recent, err := b.store.RecentAnswers(ctx, id, 3)
	if err != nil {
		log.Error("Error getting recent answers", "chat", chatID, "err", err)
	}
	if len(recent) > 0 {
		statMessage += "\n\nLatest answers:\n"
		for i, rec := range recent {
			mark := "❌"
			if rec.Correct {
				mark = "✅"
			}
			statMessage += fmt.Sprintf("%d. %s %s\n", i+1, truncate(rec.Question, 50), mark)
		}
	}

	b.sendMessage(chatID, statMessage)
}

// sendMessage sends a plain text message
func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Error("Error sending message", "chat", chatID, "err", err)
	}
}

// sendCallbackResponse answers a callback query
func (b *Bot) sendCallbackResponse(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Error("Error sending callback response", "err", err)
	}
}

// parseCallback decodes "act:<name>" or "act:<name>:<question>:<option>"
func parseCallback(data string) (flow.Action, bool) {
	if !strings.HasPrefix(data, callbackPrefix) {
		return flow.Action{}, false
	}
	parts := strings.Split(strings.TrimPrefix(data, callbackPrefix), ":")
	switch len(parts) {
	case 1:
		return flow.ParseAction(parts[0], -1, -1), true
	case 3:
		question, err := strconv.Atoi(parts[1])
		if err != nil {
			return flow.Action{}, false
		}
		option, err := strconv.Atoi(parts[2])
		if err != nil {
			return flow.Action{}, false
		}
		return flow.ParseAction(parts[0], question, option), true
	default:
		return flow.Action{}, false
	}
}

func callbackData(kind flow.ActionKind) string {
	return callbackPrefix + kind.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
