package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/yuanying/epub2jpg/internal/extract"
	"github.com/yuanying/epub2jpg/internal/layout"
	"github.com/yuanying/epub2jpg/internal/stitch"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
)

type cliOptions struct {
	InputPath string
	OutputDir string
	TempDir   string
	Stitch    bool
	Pack      bool
	Strict    bool
	Progress  bool
	Logger    *slog.Logger
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "epub2jpg",
		Short: "Extract page images from EPUB files as numbered JPEGs",
		Long: `epub2jpg pulls the page images out of an image-based EPUB (comics,
manga, photo books) and writes them as 1.jpg, 2.jpg, ... into one
output directory.

Spreads that were split into two page images can be stitched back
together, and the finished set can be packed into a digital/ folder.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringP("output", "o", "", fmt.Sprintf("Output directory (default: $%s or ./%s)", layout.OutputDirEnv, layout.DefaultOutputDir))
	pf.String("log-level", defaultLogLevel, "Log level: debug, info, warn, error")
	pf.String("log-format", defaultLogFormat, "Log format: text, json")
	pf.BoolP("verbose", "v", false, "Enable verbose logging (same as --log-level debug)")
	pf.Bool("progress", false, "Show a progress bar on stderr")

	root.AddCommand(newExtractCmd(), newStitchCmd(), newPackCmd())
	return root
}

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <book.epub>",
		Short: "Extract every page image of an EPUB into the output directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}
	cmd.Flags().Bool("stitch", false, "Stitch two-page spreads after extraction")
	cmd.Flags().Bool("pack", false, "Move the results into <output>/digital/ when done")
	cmd.Flags().String("temp-dir", "", "Directory for the temporary archive copy (default: system temp dir)")
	cmd.Flags().Bool("strict", false, "Exit non-zero if any image failed")
	return cmd
}

func newStitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stitch [dir]",
		Short: "Join adjacent page images that form one spread",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStitch,
	}
}

func newPackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pack [dir]",
		Short: "Move everything in the output directory into digital/",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPack,
	}
}

func readCLIOptions(cmd *cobra.Command, args []string) (cliOptions, error) {
	flags := cmd.Flags()

	outputDir, _ := flags.GetString("output")
	logLevel, _ := flags.GetString("log-level")
	logFormat, _ := flags.GetString("log-format")
	verbose, _ := flags.GetBool("verbose")
	showProgress, _ := flags.GetBool("progress")

	opts := cliOptions{Progress: showProgress}

	if cmd.Name() == "extract" {
		if len(args) > 0 {
			opts.InputPath = args[0]
		}
		opts.TempDir, _ = flags.GetString("temp-dir")
		opts.Stitch, _ = flags.GetBool("stitch")
		opts.Pack, _ = flags.GetBool("pack")
		opts.Strict, _ = flags.GetBool("strict")
	} else if len(args) > 0 {
		outputDir = args[0]
	}

	if flags.Changed("output") && strings.TrimSpace(outputDir) == "" {
		return cliOptions{}, errors.New("invalid --output: must not be empty")
	}
	opts.OutputDir = resolveOutputDir(outputDir)

	if opts.TempDir != "" {
		info, err := os.Stat(opts.TempDir)
		if err != nil || !info.IsDir() {
			return cliOptions{}, fmt.Errorf("invalid --temp-dir %q: not a directory", opts.TempDir)
		}
	}

	if verbose {
		logLevel = "debug"
	}
	if _, ok := parseLogLevel(logLevel); !ok {
		return cliOptions{}, fmt.Errorf("invalid --log-level %q: must be one of debug, info, warn, error", logLevel)
	}
	if !isValidLogFormat(logFormat) {
		return cliOptions{}, fmt.Errorf("invalid --log-format %q: must be one of text, json", logFormat)
	}
	opts.Logger = buildLogger(cmd.ErrOrStderr(), logLevel, logFormat)

	return opts, nil
}

// resolveOutputDir applies the fallback chain flag, environment, default.
func resolveOutputDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(layout.OutputDirEnv); env != "" {
		return env
	}
	return layout.DefaultOutputDir
}

func runExtract(cmd *cobra.Command, args []string) error {
	opts, err := readCLIOptions(cmd, args)
	if err != nil {
		return err
	}
	logger := opts.Logger

	logger.Info("extracting", "input", opts.InputPath, "output", opts.OutputDir)
	report := extract.NewPipeline(extract.Options{
		InputPath:  opts.InputPath,
		OutputDir:  opts.OutputDir,
		TempDir:    opts.TempDir,
		Logger:     logger,
		OnProgress: progressFunc(cmd.ErrOrStderr(), opts.Progress, "extracting"),
	}).Run()
	if report.Aborted {
		return fmt.Errorf("extraction failed: %w", report.Err())
	}
	logger.Info("extraction finished",
		"files", len(report.FilesWritten),
		"overwrites", len(report.Overwrites),
		"errors", len(report.Errors),
	)

	failed := len(report.Errors)
	if opts.Stitch {
		sr := stitchDir(cmd, opts)
		failed += len(sr.Errors)
	}
	if opts.Pack {
		if err := packDir(opts); err != nil {
			return err
		}
	}

	if opts.Strict && failed > 0 {
		return fmt.Errorf("%d file(s) failed (--strict): %w", failed, report.Err())
	}
	return nil
}

func runStitch(cmd *cobra.Command, args []string) error {
	opts, err := readCLIOptions(cmd, args)
	if err != nil {
		return err
	}
	report := stitchDir(cmd, opts)
	if report.Status == stitch.StatusNoValidImages && len(report.Errors) > 0 {
		return fmt.Errorf("stitch failed: %w", report.Errors[0])
	}
	return nil
}

func runPack(cmd *cobra.Command, args []string) error {
	opts, err := readCLIOptions(cmd, args)
	if err != nil {
		return err
	}
	return packDir(opts)
}

func stitchDir(cmd *cobra.Command, opts cliOptions) *stitch.Report {
	report := stitch.NewStitcher(stitch.Options{
		Dir:        opts.OutputDir,
		Logger:     opts.Logger,
		OnProgress: progressFunc(cmd.ErrOrStderr(), opts.Progress, "stitching"),
	}).Run()
	opts.Logger.Info("stitching finished",
		"dir", opts.OutputDir,
		"status", report.Status.String(),
		"spreads", len(report.Pairs),
		"skipped", len(report.Skipped),
		"errors", len(report.Errors),
	)
	return report
}

func packDir(opts cliOptions) error {
	moved, err := layout.Pack(opts.OutputDir)
	if err != nil {
		return fmt.Errorf("pack failed: %w", err)
	}
	opts.Logger.Info("packed output", "dir", opts.OutputDir, "moved", len(moved))
	return nil
}

// progressFunc returns a callback that drives a progress bar on w, or nil
// when disabled. The bar is created on the first call, once the total is known.
func progressFunc(w io.Writer, enabled bool, description string) func(done, total int) {
	if !enabled {
		return nil
	}
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription(description),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionThrottle(65*time.Millisecond),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	}
}

func parseLogLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func isValidLogFormat(format string) bool {
	switch strings.ToLower(format) {
	case "text", "json":
		return true
	}
	return false
}

func buildLogger(w io.Writer, level, format string) *slog.Logger {
	lvl, _ := parseLogLevel(level)
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
