package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/korjavin/backyardcard/ai"
	"github.com/korjavin/backyardcard/bot"
	"github.com/korjavin/backyardcard/card"
	"github.com/korjavin/backyardcard/config"
	"github.com/korjavin/backyardcard/database"
	"github.com/korjavin/backyardcard/flow"
	"github.com/korjavin/backyardcard/web"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetReportTimestamp(true)
	log.Info("Starting backyard card...")

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("Unknown log level %q, keeping info", cfg.Log.Level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.Path, cfg.Quiz.TotalQuestions)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	content, err := card.Load(cfg.Card.Path)
	if err != nil {
		log.Fatalf("Failed to load card: %v", err)
	}

	ctrl := flow.NewController(newQuestionGenerator(ctx, cfg), db)

	signer, err := web.NewVisitorSigner(cfg.Session.Secret)
	if err != nil {
		log.Fatalf("Failed to initialize sessions: %v", err)
	}
	if cfg.Session.Secret == "" {
		log.Warn("No session secret configured; visitors will start over after a restart")
	}

	server, err := web.NewServer(web.Options{
		Addr:           cfg.HTTP.Addr,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		CookieName:     cfg.Session.CookieName,
		SecureCookie:   cfg.Session.Secure,
		TotalQuestions: cfg.Quiz.TotalQuestions,
	}, ctrl, db, content, signer)
	if err != nil {
		log.Fatalf("Failed to initialize web server: %v", err)
	}

	var wg sync.WaitGroup
	if cfg.Telegram.Token != "" {
		b, err := bot.New(cfg.Telegram.Token, cfg.Telegram.Debug, ctrl, db, content)
		if err != nil {
			log.Fatalf("Failed to initialize bot: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Start(ctx)
		}()
	}

	if err := server.Run(ctx); err != nil {
		log.Errorf("Web server stopped: %v", err)
		stop()
	}
	wg.Wait()
	log.Info("Bye")
}

// newQuestionGenerator returns nil when no API key is configured, which
// disables the quiz without stopping the card.
func newQuestionGenerator(ctx context.Context, cfg *config.Config) ai.QuestionGenerator {
	if !cfg.QuizEnabled() {
		log.Warn("No LLM API key configured; the quiz is disabled")
		return nil
	}

	switch cfg.LLM.Provider {
	case "deepseek":
		return ai.NewGenerator(ai.NewDeepseekClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL))
	default:
		client, err := ai.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			log.Errorf("Failed to initialize Gemini: %v", err)
			return nil
		}
		return ai.NewGenerator(client)
	}
}
