package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/korjavin/backyardcard/models"
)

// Config holds all the configuration for the application
type Config struct {
	LLM      LLMConfig
	HTTP     HTTPConfig
	Session  SessionConfig
	Database DatabaseConfig
	Quiz     QuizConfig
	Card     CardConfig
	Telegram TelegramConfig
	Log      LogConfig
}

// LLMConfig selects the text-generation backend
type LLMConfig struct {
	Provider string
	APIKey   string `mapstructure:"api_key"`
	Model    string
	BaseURL  string `mapstructure:"base_url"`
}

// HTTPConfig holds web server settings
type HTTPConfig struct {
	Addr           string
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SessionConfig holds visitor cookie settings
type SessionConfig struct {
	Secret     string
	CookieName string `mapstructure:"cookie_name"`
	Secure     bool
}

// DatabaseConfig holds sqlite settings
type DatabaseConfig struct {
	Path string
}

// QuizConfig holds game settings
type QuizConfig struct {
	TotalQuestions int `mapstructure:"total_questions"`
}

// CardConfig points at the card content file
type CardConfig struct {
	Path string
}

// TelegramConfig enables the bot front-end when Token is set
type TelegramConfig struct {
	Token string
	Debug bool
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string
}

// Load reads configuration from an optional TOML file and the environment.
// Env overrides use the prefix GIFTCARD_. A missing API key is not an error:
// the quiz is disabled instead.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{"http://localhost:8080", "http://127.0.0.1:8080"})
	v.SetDefault("session.secret", "")
	v.SetDefault("session.cookie_name", "backyard_visitor")
	v.SetDefault("session.secure", false)
	v.SetDefault("database.path", "./data/backyardcard.db")
	v.SetDefault("quiz.total_questions", models.DefaultTotalQuestions)
	v.SetDefault("card.path", "")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.debug", false)
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")
	if path := os.Getenv("GIFTCARD_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("GIFTCARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider keys and the bot token are also accepted under their usual names.
	_ = v.BindEnv("llm.api_key", "GIFTCARD_LLM_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "DEEPSEEK_API_KEY")
	_ = v.BindEnv("telegram.token", "GIFTCARD_TELEGRAM_TOKEN", "BOT_TOKEN")

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Streamlit-style secrets files keep the key under [google].
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = v.GetString("google.api_key")
	}

	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	switch c.LLM.Provider {
	case "gemini", "deepseek":
	default:
		return nil, fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.Quiz.TotalQuestions <= 0 {
		return nil, fmt.Errorf("quiz.total_questions must be positive, got %d", c.Quiz.TotalQuestions)
	}

	return &c, nil
}

// QuizEnabled reports whether an API key is configured
func (c *Config) QuizEnabled() bool {
	return strings.TrimSpace(c.LLM.APIKey) != ""
}
