// docjudge evaluates a corpus of documents against natural-language rules
// by asking an LLM oracle for a structured verdict per (document, rule)
// pair.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docjudge/internal/config"
	"docjudge/internal/docs"
	"docjudge/internal/engine"
	"docjudge/internal/history"
	"docjudge/internal/logging"
	"docjudge/internal/oracle"
	"docjudge/internal/prompt"
	"docjudge/internal/report"
	"docjudge/internal/rules"
)

var (
	flagConfig          string
	flagDocs            []string
	flagRules           string
	flagFormat          string
	flagOut             string
	flagFileConcurrency int
	flagRuleConcurrency int
	flagWatch           bool
	flagHistory         string
)

func main() {
	root := &cobra.Command{
		Use:           "docjudge",
		Short:         "Evaluate documents against natural-language rules with an LLM oracle",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "docjudge.yaml", "path to the config file")

	check := &cobra.Command{
		Use:   "check",
		Short: "Run every rule against every document and report the results",
		RunE:  runCheck,
	}
	check.Flags().StringSliceVar(&flagDocs, "docs", nil, "document roots (overrides config)")
	check.Flags().StringVar(&flagRules, "rules", "", "rules directory (overrides config)")
	check.Flags().StringVar(&flagFormat, "format", "console", "output format: console, markdown, json, junit")
	check.Flags().StringVar(&flagOut, "out", "", "write the report to a file instead of stdout")
	check.Flags().IntVar(&flagFileConcurrency, "file-concurrency", 0, "max documents in flight (overrides config)")
	check.Flags().IntVar(&flagRuleConcurrency, "rule-concurrency", 0, "max rule evaluations per document (overrides config)")
	check.Flags().BoolVar(&flagWatch, "watch", false, "re-run when a watched document changes")
	check.Flags().StringVar(&flagHistory, "history", "", "record runs in this SQLite file (overrides config)")

	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the loaded rule set",
	}
	rulesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List rules with their severities",
		RunE:  runRulesList,
	})

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent recorded runs",
		RunE:  runHistory,
	}

	root.AddCommand(check, rulesCmd, historyCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "docjudge: %v\n", err)
		os.Exit(2)
	}
}

// loadConfig merges the config file with command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if len(flagDocs) > 0 {
		cfg.Docs.Roots = flagDocs
	}
	if flagRules != "" {
		cfg.Rules.Dir = flagRules
	}
	if flagFileConcurrency > 0 {
		cfg.Engine.FileConcurrency = flagFileConcurrency
	}
	if flagRuleConcurrency > 0 {
		cfg.Engine.RuleConcurrency = flagRuleConcurrency
	}
	if flagHistory != "" {
		cfg.History.Path = flagHistory
	}
	return cfg, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return err
	}
	defer logging.Sync()

	ruleSet, err := rules.LoadDir(cfg.Rules.Dir)
	if err != nil {
		return err
	}
	// The engine tolerates an empty rule set; the CLI does not.
	if len(ruleSet) == 0 {
		return fmt.Errorf("no rules found in %s", cfg.Rules.Dir)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, err := oracle.New(ctx, oracle.Config{
		Provider: cfg.Oracle.Provider,
		APIKey:   cfg.Oracle.APIKey,
		Model:    cfg.Oracle.Model,
		BaseURL:  cfg.Oracle.BaseURL,
		Timeout:  cfg.OracleTimeout(),
	})
	if err != nil {
		return err
	}

	client := engine.NewOracleClient(transport, prompt.New().Build, engine.RetryConfig{
		MaxAttempts:   cfg.Engine.MaxAttempts,
		BackoffBase:   cfg.BackoffBase(),
		BackoffJitter: cfg.BackoffJitter(),
	})
	scheduler := engine.NewScheduler(client, cfg.Engine.FileConcurrency, cfg.Engine.RuleConcurrency)

	var store *history.Store
	if cfg.History.Path != "" {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	summary, err := runOnce(ctx, cfg, scheduler, ruleSet, store)
	if err != nil {
		return err
	}

	if flagWatch {
		return watchLoop(ctx, cfg, scheduler, ruleSet, store)
	}

	if summary.FailedErrors() > 0 {
		os.Exit(1)
	}
	return nil
}

func runOnce(ctx context.Context, cfg *config.Config, scheduler *engine.Scheduler, ruleSet []engine.Rule, store *history.Store) (engine.Summary, error) {
	documents, err := docs.Load(ctx, cfg.Docs.Roots, cfg.Docs.Extensions)
	if err != nil {
		return engine.Summary{}, err
	}
	if len(documents) == 0 {
		return engine.Summary{}, fmt.Errorf("no documents found under %v", cfg.Docs.Roots)
	}

	started := time.Now()
	results := scheduler.Run(ctx, documents, ruleSet)
	summary := engine.Aggregate(results)

	if store != nil {
		if _, err := store.Record(summary, started, time.Since(started)); err != nil {
			logging.Get(logging.CategoryHistory).Warnf("failed to record run: %v", err)
		}
	}

	if err := emit(summary); err != nil {
		return engine.Summary{}, err
	}
	return summary, nil
}

func emit(summary engine.Summary) error {
	var out string
	var err error
	switch flagFormat {
	case "console", "":
		out = report.RenderConsole(summary)
	case "markdown":
		out = report.RenderMarkdown(summary)
	case "json":
		out, err = report.RenderJSON(summary)
	case "junit":
		out, err = report.RenderJUnit(summary)
	default:
		return fmt.Errorf("unknown format %q (want console, markdown, json, or junit)", flagFormat)
	}
	if err != nil {
		return err
	}

	if flagOut != "" {
		if werr := os.WriteFile(flagOut, []byte(out), 0644); werr != nil {
			return fmt.Errorf("failed to write report: %w", werr)
		}
		logging.Report("wrote %s report to %s", flagFormat, flagOut)
		return nil
	}
	fmt.Print(out)
	return nil
}

// watchLoop re-runs the evaluation whenever a watched document changes.
func watchLoop(ctx context.Context, cfg *config.Config, scheduler *engine.Scheduler, ruleSet []engine.Rule, store *history.Store) error {
	watcher, err := docs.NewWatcher(cfg.Docs.Roots, cfg.Docs.Extensions)
	if err != nil {
		return err
	}
	defer watcher.Close()

	fmt.Fprintln(os.Stderr, "watching for changes (ctrl-c to stop)")
	events := watcher.Run(ctx, 300*time.Millisecond)
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := runOnce(ctx, cfg, scheduler, ruleSet, store); err != nil {
				fmt.Fprintf(os.Stderr, "docjudge: %v\n", err)
			}
		}
	}
}

func runRulesList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ruleSet, err := rules.LoadDir(cfg.Rules.Dir)
	if err != nil {
		return err
	}
	for _, r := range ruleSet {
		fmt.Printf("%-8s %s\n", r.Severity, r.ID)
	}
	fmt.Printf("%d rules\n", len(ruleSet))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return fmt.Errorf("no history path configured (set history.path or DOCJUDGE_HISTORY)")
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(20)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  checked=%d passed=%d failed=%d (%v)\n",
			r.StartedAt.Format(time.RFC3339), r.ID[:8], r.Checked, r.Passed, r.Failed, r.Duration)
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
	}
	return nil
}
