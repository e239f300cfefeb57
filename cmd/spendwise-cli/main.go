package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"spendwise/internal/advisor"
	"spendwise/internal/analytics"
	"spendwise/internal/core"
	applog "spendwise/internal/log"
	"spendwise/internal/services"
	"spendwise/internal/store/memory"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "spendwise-cli",
	Short:         "Analyze bank statements from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := initConfig(cmd); err != nil {
			return err
		}
		if viper.GetBool("no-color") {
			color.NoColor = true
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <statement.csv|->",
	Short: "Show the header and first rows of a statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		in, closeIn, err := openInput(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		defer closeIn()

		svc := services.NewImportService(nil, viper.GetInt("max-rows"), logger)
		p, err := svc.Preview(cmd.Context(), in)
		if err != nil {
			return err
		}
		if viper.GetBool("debug") {
			dump(cmd.ErrOrStderr(), p)
		}
		return renderPreview(cmd.OutOrStdout(), p)
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <statement.csv|->",
	Short: "Import a statement and print balance, reports and recommendations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		mapping, err := resolveMapping()
		if err != nil {
			return err
		}
		cats, err := memory.LoadCategories(viper.GetString("categories"))
		if err != nil {
			return err
		}
		rq, err := reportOptions()
		if err != nil {
			return err
		}

		in, closeIn, err := openInput(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		defer closeIn()

		ledger := memory.New(cats)
		svc := services.NewImportService(nil, viper.GetInt("max-rows"), logger)
		res, err := svc.Import(cmd.Context(), ledger, currentUser(), in, mapping)
		if err != nil {
			return err
		}
		if viper.GetBool("debug") {
			dump(cmd.ErrOrStderr(), res)
		}

		snap := ledger.Snapshot()
		txs := analytics.Filter(snap.Transactions, snap.Categories, rq.Range, rq.Filter)
		report := Report{
			Import:          res,
			Filter:          rq.Filter.String(),
			Summary:         analytics.Summarize(txs),
			Categories:      analytics.CategoryReport(txs, snap.Categories),
			Months:          analytics.MonthlyFlows(txs),
			Recommendations: advisor.New().Evaluate(txs, snap.Categories),
		}
		if viper.GetBool("json") {
			return renderJSON(cmd.OutOrStdout(), report)
		}
		return renderReport(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is ./spendwise.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("debug", false, "Dump parsed structures to stderr")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable coloured output")
	rootCmd.PersistentFlags().Int("max-rows", 100000, "Maximum statement data rows")

	analyzeCmd.Flags().StringP("mapping", "m", "", "YAML file with date, description and amount column names")
	analyzeCmd.Flags().String("date-column", "", "Header of the date column")
	analyzeCmd.Flags().String("description-column", "", "Header of the description column")
	analyzeCmd.Flags().String("amount-column", "", "Header of the amount column")
	analyzeCmd.Flags().String("categories", "", "YAML category seed file")
	analyzeCmd.Flags().String("start", "", "Only include transactions on or after this date")
	analyzeCmd.Flags().String("end", "", "Only include transactions on or before this date")
	analyzeCmd.Flags().String("filter", "all", "all, income, expense, uncategorized or a category id")
	analyzeCmd.Flags().Bool("json", false, "Print the report as JSON")

	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// initConfig layers flags over SPENDWISE_* environment variables over the config file.
func initConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("spendwise")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("SPENDWISE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func newLogger() *applog.Logger {
	// Unknown levels fall back to info.
	level, _ := applog.ParseLevel(viper.GetString("log-level"))
	logger := applog.New(applog.Config{
		Level:     level,
		Component: applog.ComponentCLI,
		Format:    applog.FormatConsole,
		Output:    os.Stderr,
	})
	applog.SetDefault(logger)
	return logger
}

// resolveMapping starts from the mapping file and lets individual column flags override it.
func resolveMapping() (core.ColumnMapping, error) {
	var m core.ColumnMapping
	if path := viper.GetString("mapping"); path != "" {
		var err error
		if m, err = LoadMapping(path); err != nil {
			return core.ColumnMapping{}, err
		}
	}
	if v := viper.GetString("date-column"); v != "" {
		m.Date = v
	}
	if v := viper.GetString("description-column"); v != "" {
		m.Description = v
	}
	if v := viper.GetString("amount-column"); v != "" {
		m.Amount = v
	}
	return m, nil
}

func reportOptions() (ReportOptions, error) {
	return ParseReportOptions(viper.GetString("start"), viper.GetString("end"), viper.GetString("filter"))
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open statement: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func dump(w io.Writer, v any) {
	printer := pp.New()
	printer.SetOutput(w)
	printer.SetColoringEnabled(!color.NoColor)
	printer.Println(v)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}
