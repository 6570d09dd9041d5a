package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/vocabgate/internal/excel"
	"github.com/example/vocabgate/internal/level"
	"github.com/example/vocabgate/internal/logger"
	"github.com/example/vocabgate/internal/quiz"
	"github.com/example/vocabgate/internal/spaced_repetition"
	"github.com/example/vocabgate/pkg/models"
)

// Learning is the service surface the bot talks to
type Learning interface {
	quiz.Reviewer
	RegisterUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	SetLevel(ctx context.Context, userID int64, level models.DifficultyLevel) error
	SetLanguage(ctx context.Context, userID int64, language string) error
	FilterText(ctx context.Context, userID int64, language, text string) (models.FilteringResult, error)
	MarkKnown(ctx context.Context, userID int64, lemma, language string) (*models.LearnerWordProgress, error)
	Forget(ctx context.Context, userID int64, lemma, language string) error
	EstimateLevel(ctx context.Context, userID int64, language string) (models.DifficultyLevel, error)
	ApplyEstimatedLevel(ctx context.Context, userID int64, language string) (models.DifficultyLevel, bool, error)
	LevelReport(ctx context.Context, userID int64, language string) (map[models.DifficultyLevel]level.LevelMastery, error)
	RecommendNext(ctx context.Context, userID int64, language string, count int, focusLevel models.DifficultyLevel) ([]models.VocabularyEntry, error)
	Streak(ctx context.Context, userID int64) (int, error)
}

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// ReminderTrigger sends a learner's reminder on demand
type ReminderTrigger interface {
	RunManualCheck(ctx context.Context, user models.User) error
}

// Bot represents the Telegram bot application
type Bot struct {
	api      *tgbotapi.BotAPI
	token    string
	svc      Learning
	importer *excel.Importer
	sessions *quiz.Store
	settings Settings
	admins   map[int64]bool
	log      *logger.Logger
	now      func() time.Time
	reminder ReminderTrigger

	mu             sync.Mutex
	awaitingImport map[int64]bool
}

// New creates a new bot instance. importer may be nil, which disables /import.
func New(token string, svc Learning, importer *excel.Importer, settings Settings, log *logger.Logger) (*Bot, error) {
	if token == "" {
		return nil, errors.New("telegram bot token is not set")
	}
	if log == nil {
		log = logger.Nop()
	}
	admins := make(map[int64]bool, len(settings.AdminIDs))
	for _, id := range settings.AdminIDs {
		admins[id] = true
	}
	return &Bot{
		token:          token,
		svc:            svc,
		importer:       importer,
		sessions:       quiz.NewStore(),
		settings:       settings,
		admins:         admins,
		log:            log.With("component", "bot"),
		now:            time.Now,
		awaitingImport: make(map[int64]bool),
	}, nil
}

// SetReminderTrigger enables /remind. The scheduler needs the bot as its notifier,
// so it is attached after both exist.
func (b *Bot) SetReminderTrigger(r ReminderTrigger) {
	b.reminder = r
}

// Connect authorizes against the Telegram API
func (b *Bot) Connect() error {
	botAPI, err := tgbotapi.NewBotAPI(b.token)
	if err != nil {
		return fmt.Errorf("unable to create bot: %w", err)
	}
	b.api = botAPI
	b.log.Info("authorized on telegram", "account", botAPI.Self.UserName)
	return nil
}

// Run handles updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context) error {
	if b.api == nil {
		if err := b.Connect(); err != nil {
			return err
		}
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

// SendReminders implements the scheduler.Notifier interface
func (b *Bot) SendReminders(ctx context.Context, userID int64, count int) error {
	if _, err := b.svc.GetUser(ctx, userID); err != nil {
		return err
	}
	// user ID and chat ID match in private chats
	msg := tgbotapi.NewMessage(userID, reminderText(count))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "🎯 Review now", CallbackData: callbackStartReview}},
	})
	if err := b.send(msg); err != nil {
		return err
	}
	b.log.Debug("reminder sent", "user_id", userID, "count", count)
	return nil
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.admins[userID]
}

func (b *Bot) send(c tgbotapi.Chattable) error {
	if _, err := b.api.Send(c); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Warn("reply failed", "chat_id", chatID, "error", err)
	}
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		if err := b.HandleCommand(ctx, update.Message); err != nil {
			b.log.Error("command failed", "command", update.Message.Command(), "user_id", update.Message.From.ID, "error", err)
			b.reply(update.Message.Chat.ID, "❌ Something went wrong, please try again.")
		}
	case update.Message != nil && update.Message.Document != nil && b.takeAwaitingImport(update.Message.From.ID):
		if err := b.importDocument(ctx, update.Message); err != nil {
			b.log.Error("import failed", "user_id", update.Message.From.ID, "error", err)
			b.reply(update.Message.Chat.ID, "❌ Import failed: "+err.Error())
		}
	case update.Message != nil && update.Message.Text != "":
		// plain text is filtered like /filter
		if err := b.handleFilter(ctx, update.Message, update.Message.Text); err != nil {
			b.log.Error("filter failed", "user_id", update.Message.From.ID, "error", err)
		}
	case update.CallbackQuery != nil:
		if err := b.HandleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.Error("callback failed", "data", update.CallbackQuery.Data, "error", err)
		}
	}
}

func (b *Bot) setAwaitingImport(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.awaitingImport[userID] = true
}

func (b *Bot) takeAwaitingImport(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	ok := b.awaitingImport[userID]
	delete(b.awaitingImport, userID)
	return ok
}

// importDocument downloads an uploaded spreadsheet and imports it
func (b *Bot) importDocument(ctx context.Context, message *tgbotapi.Message) error {
	doc := message.Document
	ext := filepath.Ext(doc.FileName)
	if ext != ".xlsx" && ext != ".csv" {
		return fmt.Errorf("unsupported file type %q", ext)
	}

	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		return fmt.Errorf("failed to get file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp("", "vocabgate-import-*"+ext)
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	cfg := excel.DefaultImportConfig()
	cfg.FilePath = tmp.Name()
	cfg.Language = b.settings.DefaultLanguage
	result, err := b.importer.ImportFile(ctx, cfg)
	if err != nil {
		return err
	}
	b.reply(message.Chat.ID, formatImportResult(result))
	return nil
}

// sendQuestion shows the current question of the learner's session
func (b *Bot) sendQuestion(chatID int64, q quiz.Question) error {
	msg := tgbotapi.NewMessage(chatID, formatQuestion(q))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{
		{Text: "✅ Knew it", CallbackData: reviewCallback(spaced_repetition.OutcomeCorrect, q.Number)},
		{Text: "❌ Forgot", CallbackData: reviewCallback(spaced_repetition.OutcomeIncorrect, q.Number)},
	}})
	return b.send(msg)
}
