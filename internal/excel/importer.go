package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/xuri/excelize/v2"

	"github.com/example/vocabgate/internal/database"
	"github.com/example/vocabgate/internal/difficulty"
	"github.com/example/vocabgate/internal/logger"
	"github.com/example/vocabgate/pkg/models"
)

var errEmptyRow = errors.New("empty row")

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath        string // Path to the Excel or CSV file
	Language        string // Language used when the row has none
	LemmaColumn     string // Column with the lemma
	LanguageColumn  string // Column with the language code
	LevelColumn     string // Column with the CEFR level
	FrequencyColumn string // Column with the frequency rank
	FormsColumn     string // Column with comma-separated surface forms
	SheetName       string // Name of the sheet to import
	StartRow        int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		Language:        "en",
		LemmaColumn:     "A",
		LanguageColumn:  "B",
		LevelColumn:     "C",
		FrequencyColumn: "D",
		FormsColumn:     "E",
		SheetName:       "Sheet1",
		StartRow:        2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Classified     int
	Skipped        int
	Errors         []string
}

// Importer loads vocabulary entries into the database
type Importer struct {
	db         *database.DB
	words      *database.WordRepository
	classifier *difficulty.Classifier
	log        *logger.Logger
}

// NewImporter creates an importer
func NewImporter(db *database.DB, classifier *difficulty.Classifier, log *logger.Logger) *Importer {
	if classifier == nil {
		classifier = difficulty.NewClassifier()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Importer{
		db:         db,
		words:      database.NewWordRepository(),
		classifier: classifier,
		log:        log,
	}
}

// ImportFile imports vocabulary from an Excel or CSV file
func (im *Importer) ImportFile(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, err
	}
	return im.ImportRows(ctx, rows, config)
}

// ImportRows imports already-read rows in a single transaction. Row-level problems are
// collected in the result and do not abort the import.
func (im *Importer) ImportRows(ctx context.Context, rows [][]string, config ImportConfig) (*ImportResult, error) {
	result := &ImportResult{Errors: make([]string, 0)}

	err := im.db.InTx(ctx, func(tx *sqlx.Tx) error {
		for i, row := range rows {
			// Skip header rows
			if i < config.StartRow-1 {
				continue
			}
			result.TotalProcessed++

			entry, err := ParseRow(row, config)
			if errors.Is(err, errEmptyRow) {
				result.Skipped++
				continue
			}
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
				continue
			}

			if !entry.DifficultyLevel.Valid() {
				entry.DifficultyLevel = im.classifier.Classify(entry.Lemma, entry.Language, entry.FrequencyRank)
				result.Classified++
			}

			created, err := im.words.Upsert(ctx, tx, &entry)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	im.log.Info("vocabulary import finished",
		"file", config.FilePath,
		"processed", result.TotalProcessed,
		"created", result.Created,
		"updated", result.Updated,
		"classified", result.Classified,
		"errors", len(result.Errors),
	)
	return result, nil
}

// ParseRow converts one row into a vocabulary entry. The level is left unset when the
// cell is empty.
func ParseRow(row []string, config ImportConfig) (models.VocabularyEntry, error) {
	lemma := strings.ToLower(cleanWord(cell(row, config.LemmaColumn)))
	if lemma == "" {
		for _, v := range row {
			if strings.TrimSpace(v) != "" {
				return models.VocabularyEntry{}, fmt.Errorf("lemma cannot be empty")
			}
		}
		return models.VocabularyEntry{}, errEmptyRow
	}

	language := difficulty.NormalizeLanguage(cell(row, config.LanguageColumn))
	if language == "" {
		language = difficulty.NormalizeLanguage(config.Language)
	}
	if language == "" {
		return models.VocabularyEntry{}, fmt.Errorf("language missing for %q", lemma)
	}

	entry := models.VocabularyEntry{Lemma: lemma, Language: language}

	if raw := cell(row, config.LevelColumn); raw != "" {
		level, err := models.ParseDifficultyLevel(raw)
		if err != nil {
			return models.VocabularyEntry{}, err
		}
		entry.DifficultyLevel = level
	}

	if raw := cell(row, config.FrequencyColumn); raw != "" {
		rank, err := strconv.Atoi(raw)
		if err != nil || rank < 0 {
			return models.VocabularyEntry{}, fmt.Errorf("invalid frequency rank %q", raw)
		}
		entry.FrequencyRank = rank
	}

	if raw := cell(row, config.FormsColumn); raw != "" {
		for _, form := range strings.Split(raw, ",") {
			if form = strings.ToLower(strings.TrimSpace(form)); form != "" {
				entry.SurfaceForms = append(entry.SurfaceForms, form)
			}
		}
	}
	return entry, nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()
	return parseCSV(file)
}

func parseCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	return rows, nil
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

// cleanWord drops trailing annotations such as "go (went, gone)"
func cleanWord(word string) string {
	if i := strings.Index(word, "("); i > 0 {
		return strings.TrimSpace(word[:i])
	}
	return strings.TrimSpace(word)
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
