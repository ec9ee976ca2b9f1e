package main

import (
	"context"
	"os"

	"events-calendar/internal/config"
	"events-calendar/internal/merge"
	"events-calendar/internal/pipeline"
	"events-calendar/internal/scraper"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	pageURL    string
	outputPath string
)

var rootCmd = &cobra.Command{
	Use:   "events-calendar",
	Short: "Merge the calendar feeds linked from an events page into one ICS file",
	Long: `Fetches an events page, follows every per-event ICS link on it, and writes
the upcoming events of all feeds into a single deduplicated calendar file.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(int(run(cmd.Context())))
	},
}

func init() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.Flags().StringVar(&pageURL, "page-url", "", "events page to scan (overrides config)")
	rootCmd.Flags().StringVar(&outputPath, "output", "", "calendar file to write (overrides config)")
}

func run(ctx context.Context) pipeline.ExitStatus {
	app, err := config.Load(configPath)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return pipeline.ExitFatal
	}
	if pageURL != "" {
		app.Page.URL = pageURL
	}
	if outputPath != "" {
		app.Output.Path = outputPath
	}
	if err := app.Validate(); err != nil {
		log.Error(err)
		return pipeline.ExitFatal
	}

	level, _ := log.ParseLevel(app.Log.Level)
	log.SetLevel(level)
	if app.Source != "" {
		log.Debugf("Loaded configuration from file: %s", app.Source)
	} else {
		log.Debugf("Config file not found at %s, using defaults and environment variables", configPath)
	}

	logger := log.WithField("run", uuid.NewString())
	fetcher := scraper.NewHTTPFetcher(app.HTTP.Timeout, app.HTTP.UserAgent)

	p := &pipeline.Pipeline{
		PageURL:    app.Page.URL,
		OutputPath: app.Output.Path,
		Fetcher:    fetcher,
		Extract:    scraper.ExtractFeedLinks,
		Merger: &merge.Merger{
			Fetcher:   fetcher,
			Logger:    logger,
			ProductID: app.Calendar.ProductID,
			Name:      app.Calendar.Name,
		},
		Logger: logger,
	}

	return p.Run(ctx)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(int(pipeline.ExitFatal))
	}
}
