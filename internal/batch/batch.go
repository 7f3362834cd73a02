// SPDX-License-Identifier: MPL-2.0

package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dbcgen/dbcgen/internal/codegen"
	"github.com/dbcgen/dbcgen/internal/discovery"
	"github.com/dbcgen/dbcgen/internal/naming"
)

const (
	// DefaultOutputExtension is the extension of generated files.
	DefaultOutputExtension = "rs"

	// CollisionPolicyError aborts the batch before any write when two units
	// derive the same module identifier.
	CollisionPolicyError CollisionPolicy = "error"
	// CollisionPolicySkip keeps the first unit in discovery order and skips
	// the others with a failure.
	CollisionPolicySkip CollisionPolicy = "skip"

	// StageRead is a unit whose content could not be read.
	StageRead Stage = "read"
	// StageDerive is a unit whose file name yields no usable identifier.
	StageDerive Stage = "derive"
	// StageCollision is a unit skipped because its identifier was taken.
	StageCollision Stage = "collision"
	// StageGenerate is a unit the engine failed to generate.
	StageGenerate Stage = "generate"
)

type (
	// CollisionPolicy decides what happens when units share an identifier.
	CollisionPolicy string

	// Stage names the step a unit failed in.
	Stage string

	// Options configure a Processor.
	Options struct {
		// OutDir is the existing directory outputs are written to.
		OutDir string
		// OutputExtension is the generated file extension, without a dot.
		OutputExtension string
		// IndexName is the index file, relative to OutDir unless absolute,
		// or "" when no index is written. Modules never take this path.
		IndexName string
		// Jobs bounds how many units are generated at once. Values below 2
		// process units one at a time.
		Jobs int
		// Collision is the identifier collision policy. Empty means
		// CollisionPolicyError.
		Collision CollisionPolicy
		// Logger receives progress records. Nil means slog.Default().
		Logger *slog.Logger
	}

	// Failure is a unit that was skipped.
	Failure struct {
		Unit  discovery.SourceUnit
		Stage Stage
		Err   error
	}

	// Result is the outcome of a batch.
	Result struct {
		// Modules lists the generated modules in discovery order.
		Modules []naming.ModuleIdentifier
		// Failures lists skipped units in discovery order.
		Failures []Failure
		// Attempted is the number of units handed to Run.
		Attempted int
	}

	// Processor runs the engine over a batch of units.
	Processor struct {
		engine codegen.Engine
		base   codegen.Config
		opts   Options
		logger *slog.Logger
	}

	plan struct {
		unit    discovery.SourceUnit
		module  naming.ModuleIdentifier
		failure *Failure
	}

	outcome struct {
		module  naming.ModuleIdentifier
		failure *Failure
	}
)

// IsValid returns whether the policy is known, and a list of validation
// errors if it is not.
func (p CollisionPolicy) IsValid() (bool, []error) {
	switch p {
	case CollisionPolicyError, CollisionPolicySkip, "":
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q (expected %q or %q)", ErrInvalidCollisionPolicy, string(p), CollisionPolicyError, CollisionPolicySkip)}
	}
}

// String returns the policy name.
func (p CollisionPolicy) String() string { return string(p) }

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Unit.Path, f.Err)
}

// Unwrap returns the cause.
func (f Failure) Unwrap() error { return f.Err }

// Detail returns the failure message. With verbose set every error in the
// chain is listed on its own line.
func (f Failure) Detail(verbose bool) string {
	if !verbose {
		return f.Err.Error()
	}
	var b strings.Builder
	b.WriteString(f.Err.Error())
	for err := errors.Unwrap(f.Err); err != nil; err = errors.Unwrap(err) {
		b.WriteString("\n  caused by: ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Skipped returns the number of units that produced no output.
func (r Result) Skipped() int { return len(r.Failures) }

// New returns a Processor that generates units with engine, deriving each
// unit configuration from base.
func New(engine codegen.Engine, base codegen.Config, opts Options) (*Processor, error) {
	if engine == nil {
		return nil, errors.New("batch: engine is required")
	}
	if valid, errs := opts.Collision.IsValid(); !valid {
		return nil, errors.Join(errs...)
	}
	if opts.Collision == "" {
		opts.Collision = CollisionPolicyError
	}
	opts.OutputExtension = strings.TrimPrefix(opts.OutputExtension, ".")
	if opts.OutputExtension == "" {
		opts.OutputExtension = DefaultOutputExtension
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{engine: engine, base: base, opts: opts, logger: logger}, nil
}

// Run generates every unit into the output directory and returns the
// modules that were generated. Per-unit problems are returned as failures in
// the Result; the returned error is non-nil only for conditions that abort
// the whole batch, in which case the Result covers the units completed so far.
func (p *Processor) Run(ctx context.Context, units []discovery.SourceUnit) (Result, error) {
	res := Result{Attempted: len(units)}

	if err := checkOutputDir(p.opts.OutDir); err != nil {
		return res, err
	}

	plans, err := p.plan(units)
	if err != nil {
		return res, err
	}

	outcomes := make([]outcome, len(plans))
	if p.opts.Jobs > 1 {
		err = p.runParallel(ctx, plans, outcomes)
	} else {
		err = p.runSequential(ctx, plans, outcomes)
	}

	for i, pl := range plans {
		switch {
		case pl.failure != nil:
			res.Failures = append(res.Failures, *pl.failure)
		case outcomes[i].failure != nil:
			res.Failures = append(res.Failures, *outcomes[i].failure)
		case outcomes[i].module != "":
			res.Modules = append(res.Modules, outcomes[i].module)
		}
	}
	return res, err
}

// plan derives identifiers and applies the collision policy before anything
// is written.
func (p *Processor) plan(units []discovery.SourceUnit) ([]plan, error) {
	plans := make([]plan, len(units))
	owners := make(map[naming.ModuleIdentifier]int, len(units))
	var collisions []Collision
	collisionIdx := make(map[naming.ModuleIdentifier]int)

	indexPath := p.indexPath()

	for i, unit := range units {
		plans[i] = plan{unit: unit}
		module := naming.Derive(unit.Path)
		if valid, errs := module.IsValid(); !valid {
			plans[i].failure = &Failure{Unit: unit, Stage: StageDerive, Err: errors.Join(errs...)}
			continue
		}
		plans[i].module = module

		if indexPath != "" && p.destination(module) == indexPath {
			err := fmt.Errorf("%w: module %q would overwrite the module index %s", ErrModuleCollision, module, p.opts.IndexName)
			if p.opts.Collision == CollisionPolicyError {
				return nil, err
			}
			plans[i].failure = &Failure{Unit: unit, Stage: StageCollision, Err: err}
			continue
		}

		first, taken := owners[module]
		if !taken {
			owners[module] = i
			continue
		}
		if p.opts.Collision == CollisionPolicySkip {
			plans[i].failure = &Failure{
				Unit:  unit,
				Stage: StageCollision,
				Err:   fmt.Errorf("%w: module %q is already generated from %s", ErrModuleCollision, module, units[first].Path),
			}
			continue
		}
		ci, seen := collisionIdx[module]
		if !seen {
			ci = len(collisions)
			collisionIdx[module] = ci
			collisions = append(collisions, Collision{Module: module, Paths: []string{units[first].Path}})
		}
		collisions[ci].Paths = append(collisions[ci].Paths, unit.Path)
	}

	if len(collisions) > 0 {
		return nil, &CollisionError{Collisions: collisions}
	}
	return plans, nil
}

func (p *Processor) runSequential(ctx context.Context, plans []plan, outcomes []outcome) error {
	for i, pl := range plans {
		if err := ctx.Err(); err != nil {
			return err
		}
		if pl.failure != nil {
			continue
		}
		out, err := p.process(pl)
		if err != nil {
			return err
		}
		outcomes[i] = out
	}
	return nil
}

// runParallel stores each outcome at its unit's index so the result keeps
// discovery order regardless of completion order.
func (p *Processor) runParallel(ctx context.Context, plans []plan, outcomes []outcome) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Jobs)

	for i, pl := range plans {
		if pl.failure != nil {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := p.process(pl)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// The group context is cancelled when Wait returns, so report the
	// caller's cancellation only.
	return ctx.Err()
}

// process reads, generates and commits one unit. A non-nil error aborts the
// batch; unit problems are reported through the outcome.
func (p *Processor) process(pl plan) (outcome, error) {
	unit := pl.unit
	skip := func(stage Stage, err error) (outcome, error) {
		p.logger.Debug("skipping unit", "unit", unit.Path, "stage", string(stage), "error", err)
		return outcome{failure: &Failure{Unit: unit, Stage: stage, Err: err}}, nil
	}

	content, err := os.ReadFile(unit.Path)
	if err != nil {
		return skip(StageRead, err)
	}

	dest := p.destination(pl.module)
	out, err := createPending(dest)
	if err != nil {
		return outcome{}, err
	}

	cfg := p.base.WithUnit(unit.Name, content)
	if err := p.engine.Generate(cfg, out); err != nil {
		if discardErr := out.Discard(); discardErr != nil {
			p.logger.Warn("failed to remove temporary file", "dest", dest, "error", discardErr)
		}
		return skip(StageGenerate, err)
	}
	if err := out.Commit(); err != nil {
		return outcome{}, err
	}

	p.logger.Debug("generated module", "unit", unit.Path, "module", pl.module.String(), "dest", dest)
	return outcome{module: pl.module}, nil
}

func (p *Processor) destination(module naming.ModuleIdentifier) string {
	return filepath.Join(p.opts.OutDir, module.FileName(p.opts.OutputExtension))
}

// indexPath resolves IndexName, or returns "" when no index is requested.
func (p *Processor) indexPath() string {
	switch {
	case p.opts.IndexName == "":
		return ""
	case filepath.IsAbs(p.opts.IndexName):
		return filepath.Clean(p.opts.IndexName)
	default:
		return filepath.Join(p.opts.OutDir, p.opts.IndexName)
	}
}

func checkOutputDir(dir string) error {
	if dir == "" {
		return &OutputDirError{Path: dir, Err: errors.New("no output directory given")}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return &OutputDirError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return &OutputDirError{Path: dir}
	}
	return nil
}
