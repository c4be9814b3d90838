package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/yingtu35/site-crawler/internal/config"
	"github.com/yingtu35/site-crawler/internal/export"
	"github.com/yingtu35/site-crawler/internal/logging"
	"github.com/yingtu35/site-crawler/internal/webscraper"
)

// ErrProblemsFound makes the process exit with status 1 after the report
// has been printed.
var ErrProblemsFound = errors.New("problems found")

// launcherFactory builds the page-fetching collaborator for a run.
type launcherFactory func(cfg *config.Config, logger *slog.Logger) webscraper.Launcher

func playwrightLauncher(cfg *config.Config, logger *slog.Logger) webscraper.Launcher {
	return webscraper.NewPlaywrightLauncher(webscraper.PlaywrightOptions{
		Headless:            cfg.Browser.Headless,
		ExecutablePath:      cfg.Browser.ExecutablePath,
		Args:                cfg.Browser.Args,
		NavigationTimeout:   cfg.Browser.NavigationTimeout.Duration,
		SkipInstallBrowsers: cfg.Browser.SkipInstall,
	}, logger)
}

type rootFlags struct {
	configPath  string
	wait        time.Duration
	limit       int
	selection   string
	onError     string
	stripWWW    bool
	headless    bool
	concurrency int
	csv         string
	json        string
	verbose     bool
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(playwrightLauncher)
}

func newRootCmd(newLauncher launcherFactory) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "site-crawler [url]",
		Short: "Crawl a site and report console errors, bad status codes and broken external links",
		Long: `site-crawler loads every page of a site reachable from the given URL in a
headless browser. It records console errors and warnings, pages that do not
answer 200, and external links that answer with a status above 403.

The process exits with status 1 when any problem is found.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, args, flags)
			if err != nil {
				return err
			}
			return run(cmd, cfg, flags.verbose, newLauncher)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML configuration file")
	f.DurationVarP(&flags.wait, "wait", "w", 0, "Pause between two page visits (e.g. 500ms)")
	f.IntVarP(&flags.limit, "limit", "l", webscraper.DefaultPageLimit, "Maximum number of visited URLs")
	f.StringVar(&flags.selection, "selection", config.SelectionFIFO, "Next page selection: fifo or random")
	f.StringVar(&flags.onError, "on-error", config.PolicyPartial, "On traversal failure: partial (report what was found) or discard")
	f.BoolVar(&flags.stripWWW, "strip-www", false, "Treat www.<host> as the same site")
	f.BoolVar(&flags.headless, "headless", true, "Run the browser headless")
	f.IntVar(&flags.concurrency, "external-concurrency", 1, "External links checked in parallel (1-20)")
	f.StringVar(&flags.csv, "csv", "", "Also write the report to <name>.csv")
	f.StringVar(&flags.json, "json", "", "Also write the report to <name>.json")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

// buildConfig layers the config file, the environment and explicit flags.
func buildConfig(cmd *cobra.Command, args []string, flags rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	if len(args) == 1 {
		cfg.Target = args[0]
	}
	changed := cmd.Flags().Changed
	if changed("wait") {
		cfg.Wait = config.DurationFrom(flags.wait)
	}
	if changed("limit") {
		cfg.PageLimit = flags.limit
	}
	if changed("selection") {
		cfg.Selection = flags.selection
	}
	if changed("on-error") {
		cfg.OnTraversalError = flags.onError
	}
	if changed("strip-www") {
		cfg.Hosts.StripWWW = flags.stripWWW
	}
	if changed("headless") {
		cfg.Browser.Headless = flags.headless
	}
	if changed("external-concurrency") {
		cfg.External.Concurrency = flags.concurrency
	}
	if changed("csv") {
		cfg.Output.CSV = flags.csv
	}
	if changed("json") {
		cfg.Output.JSON = flags.json
	}

	cfg.ApplyEnv(os.LookupEnv)
	cfg.Normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newCrawler(cfg *config.Config, logger *slog.Logger, launcher webscraper.Launcher) *webscraper.Crawler {
	verifier := webscraper.NewExternalVerifier(
		webscraper.WithUserAgent(cfg.External.UserAgent),
		webscraper.WithRequestTimeout(cfg.External.Timeout.Duration),
		webscraper.WithConcurrency(cfg.External.Concurrency),
		webscraper.WithRetries(uint64(cfg.External.MaxRetries), 0),
		webscraper.WithVerifierLogger(logger),
	)

	policy := webscraper.ReturnPartial
	if cfg.OnTraversalError == config.PolicyDiscard {
		policy = webscraper.Discard
	}
	selector := func() webscraper.Selector { return &webscraper.FIFOSelector{} }
	if cfg.Selection == config.SelectionRandom {
		selector = func() webscraper.Selector { return &webscraper.RandomSelector{} }
	}

	return webscraper.New(launcher,
		webscraper.WithWait(cfg.Wait.Duration),
		webscraper.WithPageLimit(cfg.PageLimit),
		webscraper.WithStripWWW(cfg.Hosts.StripWWW),
		webscraper.WithFatalPolicy(policy),
		webscraper.WithSelector(selector),
		webscraper.WithVerifier(verifier),
		webscraper.WithLogger(logger),
	)
}

func run(cmd *cobra.Command, cfg *config.Config, verbose bool, newLauncher launcherFactory) error {
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format, verbose)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	crawler := newCrawler(cfg, logger, newLauncher(cfg, logger))
	start := time.Now()
	anomalies, err := crawler.Crawl(ctx, cfg.Target)
	if err != nil {
		return err
	}
	logger.Info("crawl completed", "elapsed", time.Since(start).String())

	export.PrintResults(cmd.OutOrStdout(), anomalies)
	if cfg.Output.CSV != "" {
		if err := export.NewCSVExporter().Export(anomalies, cfg.Output.CSV); err != nil {
			return fmt.Errorf("write CSV report: %w", err)
		}
	}
	if cfg.Output.JSON != "" {
		if err := export.NewJsonExporter().Export(anomalies, cfg.Output.JSON); err != nil {
			return fmt.Errorf("write JSON report: %w", err)
		}
	}

	if len(anomalies) > 0 {
		return ErrProblemsFound
	}
	return nil
}

// Execute runs the root command and exits non-zero on problems or errors.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if !errors.Is(err, ErrProblemsFound) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
