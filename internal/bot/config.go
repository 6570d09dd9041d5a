package bot

import (
	"github.com/example/vocabgate/internal/config"
	"github.com/example/vocabgate/pkg/models"
)

// Settings holds the bot defaults
type Settings struct {
	// Language given to new learners
	DefaultLanguage string
	// Level given to new learners
	DefaultLevel models.DifficultyLevel
	// Number of due words per /due session
	SessionSize int
	// Number of words listed by /recommend
	RecommendCount int
	// Hour new learners get reminders at
	DefaultNotificationHour int
	// Learners allowed to /import vocabulary
	AdminIDs []int64
}

// SettingsFromConfig derives bot settings from the application config
func SettingsFromConfig(cfg *config.Config) Settings {
	level, err := models.ParseDifficultyLevel(cfg.Review.DefaultLevel)
	if err != nil {
		level = models.LevelA1
	}
	return Settings{
		DefaultLanguage:         cfg.Review.DefaultLanguage,
		DefaultLevel:            level,
		SessionSize:             cfg.Review.SessionSize,
		RecommendCount:          cfg.Review.RecommendCount,
		DefaultNotificationHour: 9,
		AdminIDs:                cfg.Telegram.AdminIDs,
	}
}
