package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/config"
	"github.com/warp/budget-engine/report"
)

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Print the financial cycles around a date",
	RunE:  runCycles,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a user's cycle report",
	RunE:  runReport,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the effective configuration as TOML",
	RunE:  runConfigPrint,
}

func init() {
	cyclesCmd.Flags().String("date", "", "Reference date YYYY-MM-DD (default today)")
	cyclesCmd.Flags().Int("before", 3, "Cycles before the reference")
	cyclesCmd.Flags().Int("after", 3, "Cycles after the reference")
	rootCmd.AddCommand(cyclesCmd)

	reportCmd.Flags().String("user", "", "User id (required)")
	reportCmd.Flags().String("date", "", "Any date inside the cycle (default today)")
	reportCmd.Flags().String("locale", "", "pt-BR or en-US (default cycle.locale)")
	_ = reportCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(reportCmd)

	configCmd.AddCommand(configPrintCmd)
	rootCmd.AddCommand(configCmd)
}

func referenceDate(cmd *cobra.Command) (budget.TimePoint, error) {
	raw, _ := cmd.Flags().GetString("date")
	if raw == "" {
		return budget.FromTime(time.Now()), nil
	}
	return budget.ParseDate(raw)
}

func runCycles(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cycleCfg := cfg.CycleConfig()
	if err := cycleCfg.Validate(); err != nil {
		return err
	}
	ref, err := referenceDate(cmd)
	if err != nil {
		return err
	}
	before, _ := cmd.Flags().GetInt("before")
	after, _ := cmd.Flags().GetInt("after")

	current := cycleCfg.CycleFor(ref).Key()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSTART\tEND\tLABEL\t")
	for _, c := range cycleCfg.EnumerateWindow(ref, before, after) {
		marker := ""
		if c.Key() == current {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Key(), c.Start, c.End, c.Label, marker)
	}
	return tw.Flush()
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	ref, err := referenceDate(cmd)
	if err != nil {
		return err
	}

	cycleCfg := cfg.CycleConfig()
	if raw, _ := cmd.Flags().GetString("locale"); raw != "" {
		locale, ok := budget.ParseLocale(raw)
		if !ok {
			return fmt.Errorf("unsupported locale %q", raw)
		}
		cycleCfg.Locale = locale
	}

	logger := cfg.NewLogger()
	logger.SetOutput(os.Stderr)
	ctx := context.Background()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	builder := &report.Builder{
		Transactions: report.StoreSource{Store: store},
		Categories:   store,
		Cycle:        cycleCfg,
		Options:      report.Options{Locale: cycleCfg.Locale, Currency: cfg.Report.Currency},
		Log:          logger,
	}
	user, _ := cmd.Flags().GetString("user")
	text, _, err := builder.Report(ctx, budget.UserID(user), ref)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), text)
	return nil
}

func runConfigPrint(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.SMTP.Password != "" {
		cfg.SMTP.Password = "********"
	}
	return config.Encode(cfg, cmd.OutOrStdout())
}
