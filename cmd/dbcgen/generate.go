// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbcgen/dbcgen/internal/batch"
	"github.com/dbcgen/dbcgen/internal/codegen"
	"github.com/dbcgen/dbcgen/internal/config"
	"github.com/dbcgen/dbcgen/internal/discovery"
	"github.com/dbcgen/dbcgen/internal/issue"
	"github.com/dbcgen/dbcgen/internal/watch"
	"github.com/dbcgen/dbcgen/pkg/types"
)

type (
	// generateRequest captures the positional inputs of one batch run.
	generateRequest struct {
		InputPath string
		OutDir    string
		// IndexName is the module file written into OutDir, or "" for none.
		IndexName string
		Verbose   bool
		Load      config.LoadOptions
	}

	// generateFlags override the generate section of the configuration. A
	// flag only applies when it was set on the command line.
	generateFlags struct {
		debug             bool
		jobs              int
		extension         string
		outputExtension   string
		collision         string
		exclude           []string
		followSymlinks    bool
		debugPrints       bool
		commonTypesImport string
		watch             bool
	}
)

func (f *generateFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVar(&f.debug, "debug", false, "print the full cause of every skipped file")
	flags.IntVarP(&f.jobs, "jobs", "j", 1, "number of files generated at once")
	flags.StringVar(&f.extension, "extension", "dbc", "extension of input files searched in directories")
	flags.StringVar(&f.outputExtension, "output-extension", "rs", "extension of generated files")
	flags.StringVar(&f.collision, "collision", string(config.CollisionError), "what to do when two files map to one module (error, skip)")
	flags.StringSliceVar(&f.exclude, "exclude", nil, "more directory names never searched (repeatable)")
	flags.BoolVar(&f.followSymlinks, "follow-symlinks", false, "descend into symlinked directories")
	flags.BoolVar(&f.debugPrints, "debug-prints", true, "derive Debug on generated types")
	flags.StringVar(&f.commonTypesImport, "common-types-import", config.DefaultCommonTypesImport, "import line used by modules when a module file is written")
	flags.BoolVarP(&f.watch, "watch", "w", false, "regenerate whenever an input file changes")
}

// apply copies every flag that was set onto g. Malformed extensions are
// rejected here; the remaining values are checked by g.IsValid.
func (f *generateFlags) apply(cmd *cobra.Command, g *config.GenerateConfig) error {
	changed := cmd.Flags().Changed
	if changed("jobs") {
		g.Jobs = config.JobCount(f.jobs)
	}
	if changed("extension") {
		ext, err := types.ParseFileExtension(f.extension)
		if err != nil {
			return fmt.Errorf("--extension: %w", err)
		}
		g.Extension = ext
	}
	if changed("output-extension") {
		ext, err := types.ParseFileExtension(f.outputExtension)
		if err != nil {
			return fmt.Errorf("--output-extension: %w", err)
		}
		g.OutputExtension = ext
	}
	if changed("collision") {
		g.Collision = config.CollisionPolicy(f.collision)
	}
	if changed("exclude") {
		g.ExcludeDirs = append(slices.Clone(g.ExcludeDirs), f.exclude...)
	}
	if changed("follow-symlinks") {
		g.FollowSymlinks = f.followSymlinks
	}
	if changed("debug-prints") {
		g.DebugPrints = f.debugPrints
	}
	if changed("common-types-import") {
		g.CommonTypesImport = f.commonTypesImport
	}
	return nil
}

// usageError prints err and wraps it with ExitUsage.
func usageError(w io.Writer, err error) error {
	fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+err.Error())
	return &ExitError{Code: types.ExitUsage, Err: err}
}

// batchJob is a fully resolved batch: configuration merged with flags and
// the reporting settings derived from it.
type batchJob struct {
	req        generateRequest
	gen        config.GenerateConfig
	debug      bool
	verbose    bool
	detailed   bool
	guideStyle string
	logger     *slog.Logger
}

// runGenerate runs one batch: discover units, generate each into OutDir,
// then write the module file when one was requested. With --watch the batch
// reruns whenever an input changes until the command is interrupted.
func runGenerate(cmd *cobra.Command, app *App, req generateRequest, flags *generateFlags) error {
	ctx := cmd.Context()
	stderr := app.stderr

	loaded, err := app.Config.Load(ctx, req.Load)
	if err != nil {
		return reportConfigError(stderr, err, req.Verbose)
	}
	cfg := loaded.Config

	gen := cfg.Generate
	if err := flags.apply(cmd, &gen); err != nil {
		return usageError(stderr, err)
	}
	if valid, errs := gen.IsValid(); !valid {
		return usageError(stderr, errors.Join(errs...))
	}

	verbose := req.Verbose || cfg.UI.Verbose
	job := batchJob{
		req:        req,
		gen:        gen,
		debug:      flags.debug,
		verbose:    verbose,
		detailed:   flags.debug || verbose,
		guideStyle: applyColorScheme(cfg.UI.ColorScheme),
	}
	job.logger = newLogger(stderr, job.detailed)
	if loaded.Path != "" {
		job.logger.Debug("loaded configuration", "path", loaded.Path)
	}

	if err := runBatch(ctx, app, job); err != nil {
		return err
	}
	if !flags.watch {
		return nil
	}
	return watchBatch(ctx, app, job)
}

// runBatch performs one discover-generate-index pass.
func runBatch(ctx context.Context, app *App, job batchJob) error {
	stderr := app.stderr
	req, gen, logger := job.req, job.gen, job.logger

	fail := func(err error) error {
		return reportFatal(stderr, err, job.detailed, job.guideStyle)
	}

	found, err := discovery.Discover(req.InputPath, discovery.Options{
		Extension:      gen.Extension.String(),
		ExcludeDirs:    gen.ExcludeDirs,
		FollowSymlinks: gen.FollowSymlinks,
	})
	if err != nil {
		return fail(err)
	}
	logDiagnostics(logger, found.Diagnostics)
	logger.Debug("discovered units", "root", req.InputPath, "count", len(found.Units))

	style := codegen.Standalone()
	if req.IndexName != "" {
		style = codegen.Shared(gen.ImportLine())
	}

	proc, err := batch.New(app.Engine, codegen.NewConfig(style, gen.DebugPrints), batch.Options{
		OutDir:          req.OutDir,
		OutputExtension: gen.OutputExtension.String(),
		IndexName:       req.IndexName,
		Jobs:            int(gen.Jobs),
		Collision:       batch.CollisionPolicy(gen.Collision),
		Logger:          logger,
	})
	if err != nil {
		return fail(err)
	}

	// A fatal error still returns the units handled before it, and their
	// failures are reported first.
	res, err := proc.Run(ctx, found.Units)
	reportFailures(stderr, res.Failures, job.debug)
	if err != nil {
		return fail(err)
	}
	if len(res.Failures) > 0 && job.verbose {
		renderGuide(stderr, issue.Get(issue.UnitGenerationFailedId), job.guideStyle)
	}

	if err := proc.WriteIndex(ctx, res); err != nil {
		return fail(err)
	}

	logger.Info(fmt.Sprintf("generated %d of %d units", len(res.Modules), res.Attempted),
		"skipped", res.Skipped(), "out", req.OutDir)
	return nil
}

// watchBatch reruns the batch on every settled change below the input path.
// Errors of a rerun are reported and watching continues; it returns nil once
// ctx is cancelled.
func watchBatch(ctx context.Context, app *App, job batchJob) error {
	root, patterns, err := watchTarget(job.req.InputPath, job.gen.Extension.String())
	if err != nil {
		return reportFatal(app.stderr, err, job.detailed, job.guideStyle)
	}

	w, err := watch.New(watch.Config{
		Root:        root,
		Patterns:    patterns,
		ExcludeDirs: job.gen.ExcludeDirs,
		Logger:      job.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			job.logger.Info("inputs changed, regenerating", "files", changed)
			if err := runBatch(ctx, app, job); err != nil && ctx.Err() == nil {
				job.logger.Debug("rerun failed", "error", err)
			}
			return nil
		},
	})
	if err != nil {
		return reportFatal(app.stderr, err, job.detailed, job.guideStyle)
	}

	job.logger.Info("watching for changes", "root", w.Root())
	if err := w.Run(ctx); err != nil {
		return reportFatal(app.stderr, err, job.detailed, job.guideStyle)
	}
	return nil
}

// watchTarget returns the directory to watch for inputPath and the patterns,
// relative to it, that select inputs. A single file is watched through its
// parent directory so that editors replacing the file are still seen.
func watchTarget(inputPath, ext string) (string, []string, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", discovery.ErrRootUnreadable, err)
	}
	if info.IsDir() {
		if ext == "" {
			ext = discovery.DefaultExtension
		}
		return inputPath, []string{"**/*." + escapeGlob(ext)}, nil
	}
	return filepath.Dir(inputPath), []string{escapeGlob(filepath.Base(inputPath))}, nil
}

// escapeGlob quotes the doublestar metacharacters in s.
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// reportFailures prints one line per skipped unit. With debug set the full
// error chain follows each line.
func reportFailures(w io.Writer, failures []batch.Failure, debug bool) {
	for _, f := range failures {
		fmt.Fprintf(w, "%s could not convert `%s`: %s\n",
			ErrorStyle.Render("✗"), f.Unit.Path, f.Detail(debug))
	}
}

func logDiagnostics(logger *slog.Logger, diags []discovery.Diagnostic) {
	for _, d := range diags {
		attrs := []any{"code", d.Code, "path", d.Path}
		if d.Cause != nil {
			attrs = append(attrs, "error", d.Cause)
		}
		if d.Severity == discovery.SeverityError {
			logger.Error(d.Message, attrs...)
			continue
		}
		logger.Warn(d.Message, attrs...)
	}
}

// reportFatal renders an error that aborts the batch and wraps it with the
// exit code of its category.
func reportFatal(w io.Writer, err error, verbose bool, guideStyle string) error {
	code, id := classifyBatchError(err)
	if code == types.ExitInterrupted {
		fmt.Fprintln(w, WarningStyle.Render("Interrupted"))
		return &ExitError{Code: code, Err: err}
	}

	err = issue.Annotate(id, err)
	printError(w, err, verbose, guideStyle)
	return &ExitError{Code: code, Err: err}
}

// reportConfigError renders a configuration failure and wraps it with
// ExitConfig.
func reportConfigError(w io.Writer, err error, verbose bool) error {
	printError(w, err, verbose, "auto")
	return &ExitError{Code: types.ExitConfig, Err: err}
}

// printError prints err. Actionable errors add their suggestions, and in
// verbose mode the cause chain and the catalog guide.
func printError(w io.Writer, err error, verbose bool, guideStyle string) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+err.Error())
		return
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+ae.Format(verbose))
	if verbose {
		renderGuide(w, ae.Guide(), guideStyle)
	}
}

// renderGuide prints a catalog guide. A nil guide prints nothing.
func renderGuide(w io.Writer, guide *issue.Issue, style string) {
	if guide == nil {
		return
	}
	rendered, err := guide.Render(style)
	if err != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", guide.Id(), "error", err)
		return
	}
	fmt.Fprint(w, rendered)
}
