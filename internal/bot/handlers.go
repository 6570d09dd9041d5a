package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/vocabgate/internal/database"
	"github.com/example/vocabgate/internal/quiz"
	"github.com/example/vocabgate/internal/service"
	"github.com/example/vocabgate/internal/spaced_repetition"
	"github.com/example/vocabgate/pkg/models"
)

// Constants for callback data
const (
	callbackStartReview = "start_review"
	callbackSetLevel    = "set_level:"
	callbackApplyLevel  = "apply_level"
	callbackReview      = "review:"
)

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message == nil || message.From == nil || message.Chat == nil {
		return fmt.Errorf("invalid message: required fields are missing")
	}

	args := strings.TrimSpace(message.CommandArguments())
	switch message.Command() {
	case "start":
		return b.handleStart(ctx, message)
	case "help":
		b.reply(message.Chat.ID, helpText)
		return nil
	case "setlevel":
		return b.handleSetLevel(ctx, message, args)
	case "language":
		return b.handleLanguage(ctx, message, args)
	case "level":
		return b.handleLevel(ctx, message)
	case "due":
		return b.startReview(ctx, message.From.ID, message.Chat.ID)
	case "recommend":
		return b.handleRecommend(ctx, message, args)
	case "streak":
		return b.handleStreak(ctx, message)
	case "filter":
		return b.handleFilter(ctx, message, args)
	case "known":
		return b.handleKnown(ctx, message, args)
	case "forget":
		return b.handleForget(ctx, message, args)
	case "import":
		return b.handleImport(message)
	case "remind":
		return b.handleRemind(ctx, message, args)
	default:
		b.reply(message.Chat.ID, "Unknown command. Use /help to see what I can do.")
		return nil
	}
}

// learner returns the registered learner, registering them on first contact
func (b *Bot) learner(ctx context.Context, from *tgbotapi.User) (*models.User, error) {
	user, err := b.svc.GetUser(ctx, from.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	return b.svc.RegisterUser(ctx, &models.User{
		ID:                  from.ID,
		Username:            from.UserName,
		FirstName:           from.FirstName,
		Language:            b.settings.DefaultLanguage,
		Level:               b.settings.DefaultLevel,
		NotificationEnabled: true,
		NotificationHour:    b.settings.DefaultNotificationHour,
	})
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.learner(ctx, message.From)
	if err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	text := fmt.Sprintf("👋 Welcome, %s!\n\nYou are learning %q at level %s.\n\n%s",
		message.From.FirstName, user.Language, user.Level, helpText)
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyMarkup = createKeyboard(mainMenuButtons())
	return b.send(msg)
}

func (b *Bot) handleSetLevel(ctx context.Context, message *tgbotapi.Message, args string) error {
	if _, err := b.learner(ctx, message.From); err != nil {
		return err
	}
	if args == "" {
		msg := tgbotapi.NewMessage(message.Chat.ID, "Choose your level:")
		msg.ReplyMarkup = createKeyboard(levelButtons())
		return b.send(msg)
	}
	lvl, err := models.ParseDifficultyLevel(args)
	if err != nil {
		b.reply(message.Chat.ID, "Please give a level between A1 and C2, e.g. /setlevel B1")
		return nil
	}
	return b.applyLevel(ctx, message.From.ID, message.Chat.ID, lvl)
}

func (b *Bot) applyLevel(ctx context.Context, userID, chatID int64, lvl models.DifficultyLevel) error {
	if err := b.svc.SetLevel(ctx, userID, lvl); err != nil {
		return err
	}
	b.reply(chatID, fmt.Sprintf("✅ Level set to %s. Words at or below it are hidden from now on.", lvl))
	return nil
}

func (b *Bot) handleLanguage(ctx context.Context, message *tgbotapi.Message, args string) error {
	if _, err := b.learner(ctx, message.From); err != nil {
		return err
	}
	if args == "" {
		b.reply(message.Chat.ID, "Usage: /language de")
		return nil
	}
	if err := b.svc.SetLanguage(ctx, message.From.ID, args); err != nil {
		return err
	}
	b.sessions.Delete(message.From.ID)
	b.reply(message.Chat.ID, fmt.Sprintf("✅ Now learning %q.", strings.ToLower(args)))
	return nil
}

func (b *Bot) handleLevel(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.learner(ctx, message.From)
	if err != nil {
		return err
	}
	estimate, err := b.svc.EstimateLevel(ctx, user.ID, user.Language)
	if err != nil {
		return err
	}
	report, err := b.svc.LevelReport(ctx, user.ID, user.Language)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(message.Chat.ID, formatLevelReport(estimate, report))
	if estimate.Rank() > user.Level.Rank() {
		msg.ReplyMarkup = createKeyboard([][]MenuButton{
			{{Text: fmt.Sprintf("⬆️ Move me up to %s", estimate), CallbackData: callbackApplyLevel}},
		})
	}
	return b.send(msg)
}

func (b *Bot) applyEstimatedLevel(ctx context.Context, userID, chatID int64) error {
	user, err := b.svc.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	lvl, raised, err := b.svc.ApplyEstimatedLevel(ctx, user.ID, user.Language)
	if err != nil {
		return err
	}
	if !raised {
		b.reply(chatID, fmt.Sprintf("Your level stays at %s.", lvl))
		return nil
	}
	b.reply(chatID, fmt.Sprintf("✅ Level raised to %s. Words at or below it are hidden from now on.", lvl))
	return nil
}

func (b *Bot) handleRecommend(ctx context.Context, message *tgbotapi.Message, args string) error {
	user, err := b.learner(ctx, message.From)
	if err != nil {
		return err
	}
	focus := models.LevelUnset
	if args != "" {
		if focus, err = models.ParseDifficultyLevel(args); err != nil {
			b.reply(message.Chat.ID, "Usage: /recommend or /recommend B1")
			return nil
		}
	}
	entries, err := b.svc.RecommendNext(ctx, user.ID, user.Language, b.settings.RecommendCount, focus)
	if err != nil {
		return err
	}
	b.reply(message.Chat.ID, formatRecommendations(entries))
	return nil
}

func (b *Bot) handleStreak(ctx context.Context, message *tgbotapi.Message) error {
	streak, err := b.svc.Streak(ctx, message.From.ID)
	if err != nil {
		return err
	}
	b.reply(message.Chat.ID, formatStreak(streak))
	return nil
}

func (b *Bot) handleFilter(ctx context.Context, message *tgbotapi.Message, text string) error {
	if strings.TrimSpace(text) == "" {
		b.reply(message.Chat.ID, "Usage: /filter <text>")
		return nil
	}
	user, err := b.learner(ctx, message.From)
	if err != nil {
		return err
	}
	result, err := b.svc.FilterText(ctx, user.ID, user.Language, text)
	if err != nil {
		return err
	}
	b.reply(message.Chat.ID, formatFilteringResult(result))
	return nil
}

func (b *Bot) handleKnown(ctx context.Context, message *tgbotapi.Message, word string) error {
	user, err := b.learner(ctx, message.From)
	if err != nil {
		return err
	}
	p, err := b.svc.MarkKnown(ctx, user.ID, word, user.Language)
	if errors.Is(err, service.ErrUnknownWord) {
		b.reply(message.Chat.ID, "Usage: /known <word>")
		return nil
	}
	if err != nil {
		return err
	}
	b.reply(message.Chat.ID, fmt.Sprintf("👍 %q will be hidden from now on.", p.Lemma))
	return nil
}

func (b *Bot) handleForget(ctx context.Context, message *tgbotapi.Message, word string) error {
	user, err := b.learner(ctx, message.From)
	if err != nil {
		return err
	}
	err = b.svc.Forget(ctx, user.ID, word, user.Language)
	if errors.Is(err, service.ErrUnknownWord) {
		b.reply(message.Chat.ID, fmt.Sprintf("I have no record of %q.", word))
		return nil
	}
	if err != nil {
		return err
	}
	b.reply(message.Chat.ID, fmt.Sprintf("🗑 Forgot everything about %q.", strings.ToLower(word)))
	return nil
}

func (b *Bot) handleRemind(ctx context.Context, message *tgbotapi.Message, args string) error {
	if !b.isAdmin(message.From.ID) {
		b.reply(message.Chat.ID, "This command is only available for administrators.")
		return nil
	}
	if b.reminder == nil {
		b.reply(message.Chat.ID, "Reminders are disabled.")
		return nil
	}
	userID := message.From.ID
	if args != "" {
		id, err := strconv.ParseInt(args, 10, 64)
		if err != nil {
			b.reply(message.Chat.ID, "Usage: /remind or /remind <user id>")
			return nil
		}
		userID = id
	}
	user, err := b.svc.GetUser(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		b.reply(message.Chat.ID, fmt.Sprintf("No learner with id %d.", userID))
		return nil
	}
	if err != nil {
		return err
	}
	if err := b.reminder.RunManualCheck(ctx, *user); err != nil {
		return err
	}
	b.reply(message.Chat.ID, fmt.Sprintf("🔔 Reminder check done for %d.", userID))
	return nil
}

func (b *Bot) handleImport(message *tgbotapi.Message) error {
	if !b.isAdmin(message.From.ID) || b.importer == nil {
		b.reply(message.Chat.ID, "This command is only available for administrators.")
		return nil
	}
	b.setAwaitingImport(message.From.ID)
	b.reply(message.Chat.ID, "Send an .xlsx or .csv file with columns: lemma, language, level, frequency rank, surface forms.")
	return nil
}

// startReview opens a review session over the learner's due words
func (b *Bot) startReview(ctx context.Context, userID, chatID int64) error {
	user, err := b.svc.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	session, err := quiz.Start(ctx, b.svc, user.ID, user.Language, b.settings.SessionSize, b.now())
	if errors.Is(err, quiz.ErrNothingDue) {
		b.reply(chatID, "🎉 Nothing is due right now. Try /recommend for new words.")
		return nil
	}
	if err != nil {
		return err
	}
	b.sessions.Put(session)

	q, _ := session.Current()
	return b.sendQuestion(chatID, q)
}

// HandleCallback handles button presses
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback.Message == nil {
		return nil
	}
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	// acknowledge so the client stops the spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.log.Warn("callback ack failed", "error", err)
	}

	switch data := callback.Data; {
	case data == callbackStartReview:
		return b.startReview(ctx, userID, chatID)
	case strings.HasPrefix(data, callbackSetLevel):
		lvl, err := models.ParseDifficultyLevel(strings.TrimPrefix(data, callbackSetLevel))
		if err != nil {
			return err
		}
		return b.applyLevel(ctx, userID, chatID, lvl)
	case data == callbackApplyLevel:
		return b.applyEstimatedLevel(ctx, userID, chatID)
	case strings.HasPrefix(data, callbackReview):
		outcome, number, err := parseReviewCallback(data)
		if err != nil {
			return err
		}
		return b.handleReviewAnswer(ctx, userID, chatID, outcome, number)
	default:
		return fmt.Errorf("unknown callback %q", data)
	}
}

func (b *Bot) handleReviewAnswer(ctx context.Context, userID, chatID int64, outcome spaced_repetition.Outcome, number int) error {
	session, ok := b.sessions.Get(userID)
	if !ok {
		b.reply(chatID, "This review has ended. Use /due to start a new one.")
		return nil
	}

	p, err := session.Answer(ctx, number, outcome)
	if errors.Is(err, quiz.ErrStaleQuestion) || errors.Is(err, quiz.ErrSessionOver) {
		return nil
	}
	if err != nil {
		return err
	}
	b.reply(chatID, formatAnswer(p, b.now()))

	if q, ok := session.Current(); ok {
		return b.sendQuestion(chatID, q)
	}

	b.sessions.Delete(userID)
	record, err := session.Finish(ctx, b.now())
	if err != nil {
		return err
	}
	streak, err := b.svc.Streak(ctx, userID)
	if err != nil {
		return err
	}
	b.reply(chatID, formatSessionSummary(record, streak))
	return nil
}

func mainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{{Text: "🎯 Review due words", CallbackData: callbackStartReview}},
	}
}

func levelButtons() [][]MenuButton {
	var row []MenuButton
	for _, lvl := range models.AllLevels {
		row = append(row, MenuButton{Text: lvl.String(), CallbackData: callbackSetLevel + lvl.String()})
	}
	return [][]MenuButton{row[:3], row[3:]}
}
