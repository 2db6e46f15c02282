package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"

	"github.com/halfax/sysreport/internal/collector"
	"github.com/halfax/sysreport/internal/config"
	"github.com/halfax/sysreport/internal/platform"
	"github.com/halfax/sysreport/internal/render"
	"github.com/halfax/sysreport/internal/store"
)

var (
	version    = "dev"
	commitHash = "unknown"
	buildDate  = "unknown"
)

var (
	cfgFile  string
	sections []string
	asJSON   bool
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "sysreport",
	Short: "sysreport - one-shot hardware and OS telemetry report",
	Long: `sysreport probes the host through every source it can reach (WMI,
sysfs, SMBIOS, vendor tools, optional helper binaries) and prints a
unified hardware report. Sources that fail are skipped field by field;
the report always completes.

Run without a subcommand to print the text report (equivalent to
'report').`,
	RunE: runReport,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Collect and print the report",
	RunE:  runReport,
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Collect a report and archive it in the snapshot database",
	RunE:  runSave,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived snapshots",
	RunE:  runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <snapshot-id>",
	Short: "Print an archived snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Purge snapshots older than the specified number of days",
	RunE:  runPurge,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sysreport %s (commit: %s, built: %s)\n", version, commitHash, buildDate)
	},
}

var (
	purgeDays    int
	historyLimit int
	historyHost  string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/sysreport.yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&sections, "section", nil, "limit output to the named sections (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "emit the raw report as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log per-source diagnostics to stderr")
	rootCmd.PersistentFlags().String("helper-dir", "", "directory searched for helper binaries")
	rootCmd.PersistentFlags().String("database", "", "SQLite snapshot database path (default sysreport.db)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "per-adapter invocation timeout (default 5s)")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of snapshots to list")
	historyCmd.Flags().StringVar(&historyHost, "hostname", "", "filter by hostname")
	purgeCmd.Flags().IntVar(&purgeDays, "days", 90, "purge snapshots older than this many days")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// CLI flag overrides.
	if v, _ := cmd.Flags().GetString("helper-dir"); v != "" {
		cfg.HelperDir = v
	}
	if v, _ := cmd.Flags().GetString("database"); v != "" {
		cfg.DatabasePath = v
	}
	if v, _ := cmd.Flags().GetDuration("timeout"); v > 0 {
		cfg.AdapterTimeout = v
	}
	if len(sections) == 0 && len(cfg.Sections) > 0 {
		sections = cfg.Sections
	}
	return cfg, nil
}

func newCollector(cfg *config.Config) *collector.Collector {
	logger := log.NewFilter(log.NewStdLogger(os.Stderr), log.FilterLevel(log.LevelInfo))
	if verbose {
		logger = log.NewFilter(log.NewStdLogger(os.Stderr), log.FilterLevel(log.LevelDebug))
	}

	opts := []collector.Option{collector.WithLogger(logger)}
	if cfg.HelperDir != "" {
		opts = append(opts, collector.WithHelperDir(cfg.HelperDir))
	}
	if cfg.AdapterTimeout > 0 {
		opts = append(opts, collector.WithTimeout(cfg.AdapterTimeout))
	}
	return collector.New(platform.Detect(), opts...)
}

// collect runs one pass; SIGINT / SIGTERM cancel every in-flight
// adapter call through the context.
func collect(cmd *cobra.Command, cfg *config.Config) *collector.Report {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return newCollector(cfg).Collect(ctx)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rep := collect(cmd, cfg)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return render.Text(os.Stdout, rep, sections)
}

func runSave(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rep := collect(cmd, cfg)

	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	id, err := db.Save(cmd.Context(), rep.Hostname, rep.Platform, rep.CollectedAt, string(body))
	if err != nil {
		return err
	}

	fmt.Printf("Snapshot %s saved for %s\n", id, rep.Hostname)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	records, err := db.List(cmd.Context(), store.ListFilter{
		Hostname: historyHost,
		Limit:    historyLimit,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No snapshots stored.")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  %-20s %-8s collected %s\n",
			rec.SnapshotID, rec.Hostname, rec.Platform,
			rec.CollectedAt.Format(time.RFC3339))
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	rec, err := db.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", args[0], err)
	}

	fmt.Println(rec.ReportJSON)
	return nil
}

func runPurge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	n, err := db.Purge(cmd.Context(), time.Duration(purgeDays)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}

	fmt.Printf("Purged %d snapshots older than %d days\n", n, purgeDays)
	return nil
}
