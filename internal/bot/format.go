package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/example/vocabgate/internal/excel"
	"github.com/example/vocabgate/internal/level"
	"github.com/example/vocabgate/internal/quiz"
	"github.com/example/vocabgate/internal/spaced_repetition"
	"github.com/example/vocabgate/pkg/models"
)

// maxListedWords caps word lists in a single message
const maxListedWords = 30

const helpText = `Commands:
/due - review the words that are due
/filter <text> - show which words of a text you still need to learn
/known <word> - hide a word you already know
/forget <word> - drop everything recorded about a word
/recommend [level] - words to study next
/level - your estimated level
/setlevel <A1-C2> - set your level
/language <code> - switch the language you learn
/streak - days in a row with a finished review

Any other text you send is filtered like /filter.`

func reviewCallback(outcome spaced_repetition.Outcome, number int) string {
	return fmt.Sprintf("%s%s:%d", callbackReview, outcome, number)
}

func parseReviewCallback(data string) (spaced_repetition.Outcome, int, error) {
	parts := strings.Split(strings.TrimPrefix(data, callbackReview), ":")
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("malformed review callback %q", data)
	}
	outcome, err := spaced_repetition.ParseOutcome(parts[0])
	if err != nil {
		return "", 0, err
	}
	number, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("malformed review callback %q: %w", data, err)
	}
	return outcome, number, nil
}

func reminderText(count int) string {
	noun := "words"
	if count == 1 {
		noun = "word"
	}
	return fmt.Sprintf("⏰ You have %d %s to review! Press the button or send /due to start.", count, noun)
}

func formatQuestion(q quiz.Question) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "❓ %d/%d\n\n%s", q.Number, q.Total, q.Lemma)
	if q.Level.Valid() {
		fmt.Fprintf(&sb, " (%s)", q.Level)
	}
	sb.WriteString("\n\nDo you remember what it means?")
	return sb.String()
}

func formatAnswer(p *models.LearnerWordProgress, now time.Time) string {
	next := "now"
	if p.NextReviewAt != nil {
		next = "in " + humanDuration(p.NextReviewAt.Sub(now))
	}
	return fmt.Sprintf("%s: confidence %s, next review %s", p.Lemma, strings.ToLower(p.ConfidenceLevel.String()), next)
}

func humanDuration(d time.Duration) string {
	hours := int(d.Round(time.Hour) / time.Hour)
	switch {
	case hours < 1:
		return "less than an hour"
	case hours < 48:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%d days", hours/24)
	}
}

func formatSessionSummary(s models.StudySession, streak int) string {
	return fmt.Sprintf("🏁 Review finished: %d of %d remembered.\n%s", s.Correct, s.Reviewed, formatStreak(streak))
}

func formatStreak(streak int) string {
	switch streak {
	case 0:
		return "No streak yet. Finish a review today to start one."
	case 1:
		return "🔥 1 day streak"
	default:
		return fmt.Sprintf("🔥 %d day streak", streak)
	}
}

func formatFilteringResult(res models.FilteringResult) string {
	stats := res.Statistics
	if stats.TotalWords == 0 {
		return "I found no words in that text."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 %d words, %d to learn, %.0f%% hidden at your level %s.\n",
		stats.TotalWords, stats.ActiveWords, stats.FilterRate*100, res.UserLevel)
	fmt.Fprintf(&sb, "%d of %d lines need attention.\n", stats.LearningSegments, stats.TotalSegments)

	if len(res.BlockingWords) == 0 {
		sb.WriteString("\n✅ You should understand everything.")
		return sb.String()
	}
	sb.WriteString("\nWords to learn:\n")
	for i, w := range res.BlockingWords {
		if i == maxListedWords {
			fmt.Fprintf(&sb, "… and %d more\n", len(res.BlockingWords)-maxListedWords)
			break
		}
		fmt.Fprintf(&sb, "• %s (%s)\n", w.Metadata.Lemma, w.Metadata.DifficultyLevel)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatLevelReport(estimate models.DifficultyLevel, report map[models.DifficultyLevel]level.LevelMastery) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎓 Estimated level: %s\n", estimate)

	levels := make([]models.DifficultyLevel, 0, len(report))
	for lvl := range report {
		if lvl.Valid() {
			levels = append(levels, lvl)
		}
	}
	if len(levels) == 0 {
		sb.WriteString("\nReview some words so I can measure your progress.")
		return sb.String()
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	sb.WriteString("\n")
	for _, lvl := range levels {
		m := report[lvl]
		fmt.Fprintf(&sb, "%s: %d/%d mastered (%.0f%%)\n", lvl, m.Mastered, m.Total, m.Pct()*100)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatRecommendations(entries []models.VocabularyEntry) string {
	if len(entries) == 0 {
		return "Nothing to recommend yet. Send me a text to find new words."
	}
	var sb strings.Builder
	sb.WriteString("📚 Study next:\n")
	for _, e := range entries {
		if e.DifficultyLevel.Valid() {
			fmt.Fprintf(&sb, "• %s (%s)\n", e.Lemma, e.DifficultyLevel)
		} else {
			fmt.Fprintf(&sb, "• %s\n", e.Lemma)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatImportResult(res *excel.ImportResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📥 Import finished: %d rows, %d created, %d updated, %d classified, %d skipped.",
		res.TotalProcessed, res.Created, res.Updated, res.Classified, res.Skipped)
	for i, e := range res.Errors {
		if i == 10 {
			fmt.Fprintf(&sb, "\n… and %d more errors", len(res.Errors)-10)
			break
		}
		sb.WriteString("\n" + e)
	}
	return sb.String()
}
