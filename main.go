package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/vocabgate/internal/ai"
	"github.com/example/vocabgate/internal/bot"
	"github.com/example/vocabgate/internal/cache"
	"github.com/example/vocabgate/internal/config"
	"github.com/example/vocabgate/internal/database"
	"github.com/example/vocabgate/internal/difficulty"
	"github.com/example/vocabgate/internal/excel"
	"github.com/example/vocabgate/internal/logger"
	"github.com/example/vocabgate/internal/scheduler"
	"github.com/example/vocabgate/internal/service"
	"github.com/example/vocabgate/pkg/models"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "vocabgate",
		Short:         "Vocabulary-gated subtitle filtering and spaced repetition",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(filterCmd())
	rootCmd.AddCommand(correctLevelCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds what every command needs
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	log.Info("database ready", "driver", cfg.Database.Driver)
	return &app{cfg: cfg, log: log, db: db}, nil
}

func (a *app) Close() {
	a.db.Close()
	a.log.Sync()
}

// newService wires the optional cache and language assistant
func (a *app) newService(ctx context.Context) (*service.Service, func(), error) {
	opts := []service.Option{
		service.WithLogger(a.log),
		service.WithStreakWindow(a.cfg.Review.StreakWindow()),
	}
	cleanup := func() {}

	if a.cfg.Redis.Addr != "" {
		known, err := cache.NewKnownWordCache(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB, a.cfg.Redis.TTL())
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, service.WithCache(known))
		cleanup = func() { known.Close() }
		a.log.Info("known word cache enabled", "addr", a.cfg.Redis.Addr)
	}
	if a.cfg.OpenAI.APIKey != "" {
		opts = append(opts, service.WithAssistant(ai.New(a.cfg.OpenAI.APIKey, a.cfg.OpenAI.Model)))
		a.log.Info("language assistant enabled", "model", a.cfg.OpenAI.Model)
	}
	return service.New(a.db, opts...), cleanup, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, cleanup, err := a.newService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			importer := excel.NewImporter(a.db, difficulty.NewClassifier(), a.log)
			b, err := bot.New(a.cfg.Telegram.Token, svc, importer, bot.SettingsFromConfig(a.cfg), a.log)
			if err != nil {
				return err
			}
			// reminders go through the bot, so it must be connected before the scheduler runs
			if err := b.Connect(); err != nil {
				return err
			}

			if a.cfg.Scheduler.Enabled {
				sched := scheduler.New(svc, b, a.cfg.Scheduler, a.log)
				if err := sched.Start(); err != nil {
					return err
				}
				defer sched.Stop()
				b.SetReminderTrigger(sched)
			}

			a.log.Info("bot started, press Ctrl+C to stop")
			return b.Run(ctx)
		},
	}
}

func importCmd() *cobra.Command {
	cfg := excel.DefaultImportConfig()

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import vocabulary from an .xlsx or .csv file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			cfg.FilePath = args[0]
			importer := excel.NewImporter(a.db, difficulty.NewClassifier(), a.log)
			result, err := importer.ImportFile(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			fmt.Printf("Processed: %d\nCreated: %d\nUpdated: %d\nClassified: %d\nSkipped: %d\n",
				result.TotalProcessed, result.Created, result.Updated, result.Classified, result.Skipped)
			for _, e := range result.Errors {
				fmt.Println("  " + e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.Language, "language", cfg.Language, "language for rows without one")
	cmd.Flags().StringVar(&cfg.SheetName, "sheet", cfg.SheetName, "sheet to read from .xlsx files")
	cmd.Flags().IntVar(&cfg.StartRow, "start-row", cfg.StartRow, "first data row (1-based)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Println("Schema is up to date")
			return nil
		},
	}
}

func filterCmd() *cobra.Command {
	var (
		userID   int64
		language string
	)
	cmd := &cobra.Command{
		Use:   "filter [text]",
		Short: "Filter a text for a learner and print the result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			svc, cleanup, err := a.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.FilterText(cmd.Context(), userID, language, strings.Join(args, " "))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "learner id")
	cmd.Flags().StringVar(&language, "language", "en", "language of the text")
	return cmd
}

func correctLevelCmd() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "correct-level [lemma] [level]",
		Short: "Overwrite the difficulty level of a vocabulary entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := models.ParseDifficultyLevel(args[1])
			if err != nil {
				return err
			}
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			lemma := strings.ToLower(strings.TrimSpace(args[0]))
			words := database.NewWordRepository()
			if err := words.CorrectLevel(cmd.Context(), a.db, lemma, difficulty.NormalizeLanguage(language), lvl); err != nil {
				return fmt.Errorf("failed to correct %q: %w", lemma, err)
			}
			fmt.Printf("%s is now %s\n", lemma, lvl)
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "language", "en", "language of the entry")
	return cmd
}
