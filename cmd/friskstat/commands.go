package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xtxerr/friskstat/config"
	"github.com/xtxerr/friskstat/internal/errors"
	"github.com/xtxerr/friskstat/internal/loader"
	"github.com/xtxerr/friskstat/internal/logging"
	"github.com/xtxerr/friskstat/internal/report"
	"github.com/xtxerr/friskstat/internal/shell"
	"github.com/xtxerr/friskstat/internal/source"
	"github.com/xtxerr/friskstat/internal/sqf"
	"github.com/xtxerr/friskstat/internal/storage/parquet"
	"github.com/xtxerr/friskstat/internal/wire"
)

// cli holds the persistent flags and the configuration they produce.
type cli struct {
	configPath string
	inputs     []string
	onError    string
	format     string
	logLevel   string

	cfg    *loader.Config
	stdout io.Writer
	stdin  io.Reader
	stderr io.Writer
}

// shellOnly are commands that only make sense inside the shell. Cobra
// provides its own help.
var shellOnly = map[string]bool{"load": true, "status": true, "help": true}

func newRootCmd() *cobra.Command {
	c := &cli{stdout: os.Stdout, stdin: os.Stdin, stderr: os.Stderr}
	return c.rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "friskstat",
		Short: "Query NYC stop-and-frisk records",
		Long: `friskstat loads stop-and-frisk CSV exports (or Parquet files written by
'friskstat convert') and answers statistical questions about them: who was
stopped, how often stops led to frisks and arrests, gender splits by race,
year-over-year changes in suspected crimes and the busiest borough.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return c.loadConfig(cmd) },
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", config.DefaultConfigPath, "config file path")
	flags.StringSliceVarP(&c.inputs, "input", "i", nil, "input CSV or Parquet files (overrides config, repeatable)")
	flags.StringVar(&c.onError, "on-error", "", "bad row policy: abort or skip (overrides config)")
	flags.StringVarP(&c.format, "format", "f", "", "output format: text, json or pb (overrides config)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")

	for _, sc := range shell.Commands() {
		if shellOnly[sc.Name] {
			continue
		}
		root.AddCommand(c.queryCmd(sc))
	}
	root.AddCommand(c.convertCmd())
	root.AddCommand(c.renderCmd())
	root.AddCommand(c.shellCmd())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

func (c *cli) loadConfig(cmd *cobra.Command) error {
	var (
		cfg *loader.Config
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = loader.Load(c.configPath)
		if errors.Is(err, os.ErrNotExist) {
			return errors.NewNotFound("config file", c.configPath)
		}
	} else {
		cfg, err = loader.LoadOrDefault(c.configPath)
	}
	if err != nil {
		return err
	}

	// CLI overrides
	if len(c.inputs) > 0 {
		paths, err := loader.ExpandPaths(c.inputs, "")
		if err != nil {
			return errors.NewInvalidArgument("input", strings.Join(c.inputs, ","), err.Error())
		}
		cfg.Input.Paths = paths
	}
	if c.onError != "" {
		cfg.Ingest.OnError = c.onError
	}
	if c.format != "" {
		cfg.Output.Format = c.format
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}

	if err := loader.Validate(cfg); err != nil {
		return err
	}
	if err := cfg.InitLogging(); err != nil {
		return err
	}

	c.cfg = cfg
	logging.Debug("config loaded", "path", c.configPath, "inputs", len(cfg.Input.Paths))
	return nil
}

// encoder returns the output encoder for the configured format.
func (c *cli) encoder() (report.Encoder, error) {
	format, err := report.ParseFormat(c.cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	if format == report.FormatPB {
		return wire.NewWriter(c.stdout), nil
	}
	return report.NewEncoder(c.stdout, format)
}

// loadDatabase ingests the configured inputs. With allowEmpty, no inputs
// yields an empty database instead of an error.
func (c *cli) loadDatabase(ctx context.Context, allowEmpty bool) (*sqf.Database, error) {
	db := sqf.New()
	if len(c.cfg.Input.Paths) == 0 && allowEmpty {
		return db, nil
	}

	stats, err := source.Load(ctx, db, c.cfg.Input.Paths, c.cfg.SourceOptions())
	if err != nil {
		return nil, err
	}

	logging.Info("records loaded",
		"files", len(c.cfg.Input.Paths),
		"records", stats.Records,
		"skipped", stats.Skipped,
		"years", len(db.Years()))
	return db, nil
}

func (c *cli) handler(db *sqf.Database) *shell.Handler {
	return shell.NewHandler(db, shell.Options{
		Source: c.cfg.SourceOptions(),
		Query:  c.cfg.QueryOptions(),
	})
}

// =============================================================================
// Query Commands
// =============================================================================

// queryCmd exposes one shell command as a subcommand.
func (c *cli) queryCmd(sc *shell.Command) *cobra.Command {
	args := cobra.RangeArgs(sc.MinArgs, sc.MaxArgs)
	if sc.MaxArgs < 0 {
		args = cobra.MinimumNArgs(sc.MinArgs)
	}
	// sql takes the statement as one argument, quoted or not.
	if sc.Name == "sql" {
		args = cobra.MinimumNArgs(1)
	}

	return &cobra.Command{
		Use:   sc.Usage(),
		Short: sc.Help,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			if sc.Name == "sql" {
				argv = []string{strings.Join(argv, " ")}
			}
			return c.runQuery(cmd.Context(), sc.Name, argv)
		},
	}
}

func (c *cli) runQuery(ctx context.Context, name string, args []string) error {
	enc, err := c.encoder()
	if err != nil {
		return err
	}

	db, err := c.loadDatabase(ctx, false)
	if err != nil {
		return c.fail(enc, err)
	}

	h := c.handler(db)
	defer h.Close()

	result, err := h.Run(ctx, name, args)
	if err != nil {
		return c.fail(enc, err)
	}
	return enc.Encode(result)
}

// fail reports err in-band for pb streams and returns it for the exit code.
func (c *cli) fail(enc report.Encoder, err error) error {
	if w, ok := enc.(*wire.Writer); ok {
		if werr := w.WriteError(err); werr != nil {
			logging.Warn("write error frame", "error", werr)
		}
	}
	return err
}

// =============================================================================
// convert
// =============================================================================

func (c *cli) convertCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "convert <output.parquet>",
		Short: "write the loaded records to a Parquet file",
		Long: `convert ingests the inputs and writes every record to a Parquet file
that later runs can load much faster than the CSV export.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd.Context(), args[0], batchSize)
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", config.DefaultParquetBatchSize, "records per write batch")
	return cmd
}

func (c *cli) runConvert(ctx context.Context, out string, batchSize int) error {
	enc, err := c.encoder()
	if err != nil {
		return err
	}

	db, err := c.loadDatabase(ctx, false)
	if err != nil {
		return c.fail(enc, err)
	}

	opts := c.cfg.ParquetOptions()
	w, err := parquet.NewRecordWriter(out, opts)
	if err != nil {
		return c.fail(enc, err)
	}
	if err := w.WriteDatabase(db, batchSize); err != nil {
		w.Close()
		return c.fail(enc, err)
	}
	if err := w.Close(); err != nil {
		return c.fail(enc, err)
	}
	logging.Info("parquet written", "path", w.Path(), "rows", w.RowCount())

	info, err := parquet.GetFileInfo(w.Path())
	if err != nil {
		return c.fail(enc, err)
	}

	r := &report.Result{
		Query:   fmt.Sprintf("convert %s", out),
		Columns: []string{"path", "records", "bytes", "compression"},
	}
	r.Append(info.Path, info.NumRows, info.Size, c.cfg.Parquet.Compression)
	return enc.Encode(r)
}

// =============================================================================
// render
// =============================================================================

func (c *cli) renderCmd() *cobra.Command {
	var maxFrame int64

	cmd := &cobra.Command{
		Use:   "render [stream.pb...]",
		Short: "re-encode a pb result stream as text or json",
		Long: `render reads result frames written with '--format pb' from the given
files, or from stdin when none are given, and writes them in the text or
json format. An error frame stops rendering and sets the exit code the
original command exited with.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(args, maxFrame)
		},
	}
	cmd.Flags().Int64Var(&maxFrame, "max-frame-bytes", config.DefaultMaxMessageSize, "largest frame accepted")
	return cmd
}

func (c *cli) runRender(paths []string, maxFrame int64) error {
	format, err := report.ParseFormat(c.cfg.Output.Format)
	if err != nil {
		return err
	}
	if format == report.FormatPB {
		return errors.NewInvalidArgument("format", string(format), "render writes text or json")
	}
	enc, err := report.NewEncoder(c.stdout, format)
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		return renderStream(c.stdin, enc, maxFrame)
	}

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return errors.NewNotFound("stream", path)
			}
			return err
		}
		err = renderStream(f, enc, maxFrame)
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "render %s", path)
		}
	}
	return nil
}

// renderStream encodes every frame of in until a clean end of stream.
func renderStream(in io.Reader, enc report.Encoder, maxFrame int64) error {
	r := wire.NewReader(in)
	r.SetMaxSize(maxFrame)

	for n := 0; ; n++ {
		result, err := r.Read()
		if err == io.EOF {
			logging.Debug("stream rendered", "frames", n)
			return nil
		}
		if err != nil {
			return err
		}
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
}

// =============================================================================
// shell
// =============================================================================

func (c *cli) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "interactive query shell (reads commands from stdin when not a terminal)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc, err := c.encoder()
			if err != nil {
				return err
			}

			db, err := c.loadDatabase(cmd.Context(), true)
			if err != nil {
				return err
			}

			h := c.handler(db)
			defer h.Close()

			return shell.NewREPL(h, enc, c.stdin, c.stderr).Run(cmd.Context())
		},
	}
}
