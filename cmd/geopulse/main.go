// Command geopulse runs a brand visibility audit from the command line and
// writes the report to stdout or a file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/baltagiyc/geo-pulse/internal/audit"
	"github.com/baltagiyc/geo-pulse/internal/config"
	"github.com/baltagiyc/geo-pulse/internal/llm"
	"github.com/baltagiyc/geo-pulse/internal/metrics"
	"github.com/baltagiyc/geo-pulse/internal/quota"
	"github.com/baltagiyc/geo-pulse/internal/quota/postgres"
	"github.com/baltagiyc/geo-pulse/internal/quota/sqlite"
	"github.com/baltagiyc/geo-pulse/internal/report"
	"github.com/baltagiyc/geo-pulse/internal/search"
	"github.com/baltagiyc/geo-pulse/pkg/retry"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("geopulse", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		brand      string
		provider   string
		questions  int
		configPath string
		format     string
		outPath    string
		accessCode string
		verbose    bool
	)
	fs.StringVar(&brand, "brand", "", "Brand to audit (required)")
	fs.StringVar(&provider, "provider", "", "Target LLM provider to simulate (chatgpt, gemini, ...)")
	fs.IntVar(&questions, "questions", 0, "Number of questions to generate (default from config)")
	fs.StringVar(&configPath, "config", "", "Path to YAML config file")
	fs.StringVar(&format, "format", "text", "Report format: text, json, or html")
	fs.StringVar(&outPath, "out", "", "Write the report to this file instead of stdout")
	fs.StringVar(&accessCode, "access-code", "", "Access code for quota metering")
	fs.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if brand == "" {
		fmt.Fprintln(os.Stderr, "error: -brand is required")
		fs.Usage()
		return 2
	}

	log, err := newLogger(verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: create logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("load config", zap.Error(err))
		return 1
	}
	if questions > 0 {
		cfg.Audit.NumQuestions = questions
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		srv := metrics.Start(cfg.Metrics.Port, log.Named("metrics"))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Stop(shutdownCtx)
		}()
	}

	store, closeStore, err := openQuotaStore(ctx, cfg.Quota)
	if err != nil {
		log.Error("open quota store", zap.Error(err))
		return 1
	}
	defer closeStore()

	allowed, remaining, err := store.TryConsume(ctx, accessCode, cfg.Quota.MaxAudits)
	if err != nil {
		log.Error("quota check", zap.Error(err))
		return 1
	}
	if !allowed {
		log.Error("quota exhausted for access code", zap.String("access_code", accessCode))
		return 1
	}
	if accessCode != "" {
		log.Info("quota consumed", zap.Int("remaining", remaining))
	}

	st, err := runAudit(ctx, cfg, log, brand, provider)
	if err != nil {
		log.Error("audit failed", zap.Error(err))
		return 1
	}

	if err := writeReport(st, format, outPath); err != nil {
		log.Error("write report", zap.Error(err))
		return 1
	}
	return 0
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	// The report goes to stdout; keep logs off it.
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func openQuotaStore(ctx context.Context, cfg config.QuotaConfig) (quota.Store, func(), error) {
	switch {
	case cfg.PostgresDSN != "":
		s, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case cfg.SQLitePath != "":
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return quota.Unlimited{}, func() {}, nil
	}
}

func runAudit(ctx context.Context, cfg config.Config, log *zap.Logger, brand, provider string) (*audit.State, error) {
	backend := search.NewTavily(cfg.Search.TavilyAPIKey)
	policy := retry.Policy{
		Attempts:   cfg.Retry.Attempts,
		Multiplier: cfg.Retry.Multiplier,
		MinWait:    cfg.Retry.MinWait,
		MaxWait:    cfg.Retry.MaxWait,
	}
	searchSvc := search.NewService(backend, policy, log.Named("search"))

	factory := llm.NewFactory(llm.Options{
		OpenAIKey:    cfg.LLM.OpenAIAPIKey,
		GoogleKey:    cfg.LLM.GoogleAPIKey,
		RateLimitRPS: cfg.LLM.RateLimitRPS,
		Logger:       log.Named("llm"),
	})

	pipeline := audit.New(searchSvc, factory, audit.Options{
		NumQuestions:          cfg.Audit.NumQuestions,
		MaxSearchResults:      cfg.Audit.MaxSearchResults,
		SearchConcurrency:     cfg.Audit.SearchConcurrency,
		ContextModel:          cfg.LLM.ContextModel,
		QuestionModel:         cfg.LLM.QuestionModel,
		SimulationModel:       cfg.LLM.SimulationModel,
		AnalysisModel:         cfg.LLM.AnalysisModel,
		ContextTemperature:    cfg.LLM.ContextTemperature,
		QuestionTemperature:   cfg.LLM.QuestionTemperature,
		SimulationTemperature: cfg.LLM.SimulationTemperature,
		AnalysisTemperature:   cfg.LLM.AnalysisTemperature,
		Retry:                 policy,
	}, log.Named("audit"))

	return pipeline.Run(ctx, brand, provider)
}

func writeReport(st *audit.State, format, outPath string) error {
	var out io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	summary := report.GenerateSummary(st)
	switch format {
	case "json":
		return report.WriteJSON(out, summary)
	case "html":
		return report.WriteHTML(out, summary)
	case "text":
		return report.WriteText(out, summary)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}
