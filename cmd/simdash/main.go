// Package main provides the CLI entrypoint for simdash.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/simdash/internal/config"
	"github.com/verte-zerg/simdash/internal/export"
	"github.com/verte-zerg/simdash/internal/ingest"
	"github.com/verte-zerg/simdash/internal/logging"
	"github.com/verte-zerg/simdash/internal/model"
	"github.com/verte-zerg/simdash/internal/pipeline"
	"github.com/verte-zerg/simdash/internal/stats"
	"github.com/verte-zerg/simdash/internal/statsui"
	"github.com/verte-zerg/simdash/internal/store"
)

const (
	workbookName  = "report.xlsx"
	mergedCSVName = "sessions.csv"
)

var (
	flagVerbose      bool
	flagLogLevel     string
	flagSkipBadFiles bool
	flagPlotHeight   int
	flagPlotWidth    int
	flagColor        bool
	flagMaterial     string
	flagSince        string
	flagUntil        string

	exportOut    string
	exportXLSX   bool
	exportCSV    bool
	exportCharts bool

	querySQL string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "simdash [files or directories...]",
		Short:         "Driving simulator session dashboard",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runDashboardCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&flagLogLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.BoolVar(&flagSkipBadFiles, "skip-bad-files", true, "continue when a file cannot be read")
	flags.IntVar(&flagPlotHeight, "plot-height", config.DefaultPlotHeight, "plot height in rows")
	flags.IntVar(&flagPlotWidth, "plot-width", 0, "plot width in columns (0 follows the terminal)")
	flags.BoolVar(&flagColor, "color", true, "color plots written to a terminal")
	flags.StringVar(&flagMaterial, "material", "", "track material filter")
	flags.StringVar(&flagSince, "since", "", "first day to include (YYYY-MM-DD)")
	flags.StringVar(&flagUntil, "until", "", "last day to include (YYYY-MM-DD)")

	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// run holds everything an analysis command needs after flag resolution.
type run struct {
	settings config.Settings
	filter   model.Filter
	logger   *slog.Logger
	sessions []model.Session
}

func prepareRun(cmd *cobra.Command, args []string) (*run, error) {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), settings.LogLevel)
	if err != nil {
		return nil, err
	}
	filter, err := buildFilter(settings.Material)
	if err != nil {
		return nil, err
	}
	sessions, err := loadSessions(logger, args, settings.SkipBadFiles)
	if err != nil {
		return nil, err
	}
	logger.Debug("normalized sessions", slog.Int("sessions", len(sessions)))
	return &run{settings: settings, filter: filter, logger: logger, sessions: sessions}, nil
}

func resolveSettings(cmd *cobra.Command) (config.Settings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	env, err := config.LoadEnv()
	if err != nil {
		return config.Settings{}, err
	}
	s := config.Resolve(fileCfg, env)
	applyIntFlag(cmd, "plot-height", &s.PlotHeight, flagPlotHeight)
	applyIntFlag(cmd, "plot-width", &s.PlotWidth, flagPlotWidth)
	applyBoolFlag(cmd, "color", &s.Color, flagColor)
	applyBoolFlag(cmd, "skip-bad-files", &s.SkipBadFiles, flagSkipBadFiles)
	applyStringFlag(cmd, "material", &s.Material, flagMaterial)
	applyStringFlag(cmd, "log-level", &s.LogLevel, flagLogLevel)
	applyStringFlag(cmd, "out", &s.OutDir, exportOut)
	if flagVerbose {
		s.LogLevel = "debug"
	}
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	if err := s.Validate(); err != nil {
		return config.Settings{}, err
	}
	return s, nil
}

func buildFilter(material string) (model.Filter, error) {
	filter := model.Filter{Material: strings.TrimSpace(material)}
	since, err := parseDayFlag("since", flagSince)
	if err != nil {
		return model.Filter{}, err
	}
	until, err := parseDayFlag("until", flagUntil)
	if err != nil {
		return model.Filter{}, err
	}
	if since != nil && until != nil && until.Before(*since) {
		return model.Filter{}, fmt.Errorf("--until must not be before --since")
	}
	filter.Since = since
	filter.Until = until
	return filter, nil
}

func parseDayFlag(name, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := pipeline.ParseDay(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s value: %w", name, err)
	}
	return &parsed, nil
}

func loadSessions(logger *slog.Logger, args []string, skipBadFiles bool) ([]model.Session, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no input files (pass CSV files or directories)")
	}
	paths, err := ingest.ExpandPaths(args)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no CSV files found in %s", strings.Join(args, ", "))
	}
	tables, err := ingest.LoadFiles(logger, paths)
	if err != nil && !skipBadFiles {
		return nil, fmt.Errorf("failed to load session logs: %w", err)
	}
	logger.Info("loaded session logs", slog.Int("files", len(tables)), slog.Int("failed", len(paths)-len(tables)))
	return pipeline.Normalize(tables), nil
}

func (r *run) filtered() []model.Session {
	return pipeline.Apply(r.sessions, r.filter)
}

func (r *run) plotOptions() stats.PlotOptions {
	color := stats.ColorAuto
	if !r.settings.Color {
		color = stats.ColorNever
	}
	return stats.PlotOptions{Width: r.settings.PlotWidth, Height: r.settings.PlotHeight, Color: color}
}

func runDashboardCmd(cmd *cobra.Command, args []string) error {
	r, err := prepareRun(cmd, args)
	if err != nil {
		return err
	}
	m := statsui.NewModel(r.sessions, statsui.Options{Filter: r.filter, PlotHeight: r.settings.PlotHeight})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report [files or directories...]",
		Short: "Print the summary, tables and plots",
		RunE:  runReportCmd,
	}
}

func runReportCmd(cmd *cobra.Command, args []string) error {
	r, err := prepareRun(cmd, args)
	if err != nil {
		return err
	}
	res := pipeline.Analyze(r.filtered())
	if err := stats.RenderReport(cmd.OutOrStdout(), res, r.plotOptions()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [files or directories...]",
		Short: "Write the workbook, merged CSV and PNG charts",
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVarP(&exportOut, "out", "o", config.DefaultOutDir, "output directory")
	cmd.Flags().BoolVar(&exportXLSX, "xlsx", false, "write "+workbookName)
	cmd.Flags().BoolVar(&exportCSV, "csv", false, "write "+mergedCSVName)
	cmd.Flags().BoolVar(&exportCharts, "charts", false, "write PNG charts")
	return cmd
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	r, err := prepareRun(cmd, args)
	if err != nil {
		return err
	}
	writeAll := !exportXLSX && !exportCSV && !exportCharts
	outDir := r.settings.OutDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	sessions := r.filtered()
	res := pipeline.Analyze(sessions)
	var written []string

	if writeAll || exportXLSX {
		path := filepath.Join(outDir, workbookName)
		if err := export.WriteWorkbook(path, res); err != nil {
			return err
		}
		written = append(written, path)
	}
	if writeAll || exportCSV {
		path := filepath.Join(outDir, mergedCSVName)
		if err := writeMergedCSV(path, res); err != nil {
			return err
		}
		written = append(written, path)
	}
	if writeAll || exportCharts {
		charts, err := export.WriteCharts(outDir, res)
		if err != nil {
			return err
		}
		for _, name := range charts.Skipped {
			r.logger.Info("skipping chart without data", slog.String("chart", name))
		}
		written = append(written, charts.Written...)
	}

	for _, path := range written {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), path); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func writeMergedCSV(path string, res model.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return export.WriteMergedCSV(f, res.Sessions, res.Columns)
}

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [files or directories...]",
		Short: "Run SQL against the sessions table",
		Long: "Loads the merged sessions into an in-memory SQLite table named \"" + store.Table + "\".\n" +
			"Log columns keep their names; parsed_date and duration_seconds hold the derived values.",
		RunE: runQueryCmd,
	}
	cmd.Flags().StringVar(&querySQL, "sql", "", "SQL query to run")
	return cmd
}

func runQueryCmd(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(querySQL) == "" {
		return errors.New("--sql must not be empty")
	}
	r, err := prepareRun(cmd, args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			r.logger.Warn("failed to close query store", slog.Any("error", cerr))
		}
	}()

	sessions := r.filtered()
	if err := st.Load(ctx, pipeline.MergedColumns(sessions), sessions); err != nil {
		return err
	}
	res, err := st.Query(ctx, querySQL)
	if err != nil {
		return err
	}
	if err := stats.RenderTable(cmd.OutOrStdout(), res.Columns, res.Rows); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := ensureConfigFile(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func ensureConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

func applyStringFlag(cmd *cobra.Command, name string, target *string, value string) {
	if !flagChanged(cmd, name) {
		return
	}
	*target = value
}

func applyIntFlag(cmd *cobra.Command, name string, target *int, value int) {
	if !flagChanged(cmd, name) {
		return
	}
	*target = value
}

func applyBoolFlag(cmd *cobra.Command, name string, target *bool, value bool) {
	if !flagChanged(cmd, name) {
		return
	}
	*target = value
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# simdash configuration
# Uncomment a value to enable it. SIMDASH_* environment variables override
# config values and CLI flags override both.

[report]
# plot-height = %d         # Plot height in rows (4-60)
# plot-width = 0           # Plot width in columns (0 follows the terminal)
# color = true             # Color plots written to a terminal
# skip-bad-files = true    # Continue when a file cannot be read
# material = "Asphalt"     # Only show sessions on this track material

[export]
# out-dir = %q   # Output directory for simdash export

[log]
# level = %q             # debug, info, warn or error
`,
		config.DefaultPlotHeight,
		config.DefaultOutDir,
		config.DefaultLogLevel,
	)
}
