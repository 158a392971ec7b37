// Package formpatch loads a form document, applies an ordered sequence of
// patch rules, validates the result and writes it back. The packages under
// pkg/ expose each stage on its own; Run wires them together the way the
// formpatch command does.
package formpatch

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/goliatone/go-formpatch/pkg/document"
	"github.com/goliatone/go-formpatch/pkg/engine"
	"github.com/goliatone/go-formpatch/pkg/rules"
	"github.com/goliatone/go-formpatch/pkg/store"
	"github.com/goliatone/go-formpatch/pkg/tree"
	"github.com/goliatone/go-formpatch/pkg/validation"
)

// RuleSpec names a registered rule and its options.
type RuleSpec = rules.Spec

// Env aliases the settings shared by every rule of a run.
type Env = rules.Env

// Request describes a single patch run.
type Request struct {
	// Source is the document path. Required.
	Source string
	// Target defaults to store.DefaultTarget(Source), or Source when InPlace.
	Target  string
	InPlace bool
	// DryRun skips writing the target.
	DryRun bool

	Rules []RuleSpec
	Env   Env
	// Registry defaults to rules.DefaultRegistry().
	Registry *rules.Registry

	Logger *slog.Logger
	RunID  string
	// SkipIdempotenceCheck disables the engine verification pass.
	SkipIdempotenceCheck bool
}

// Result reports what a run did. It is populated as far as the run got, so
// callers can surface diagnostics of failed runs.
type Result struct {
	Source string `json:"source"`
	Target string `json:"target,omitempty"`
	// Format is the target encoding, taken from the target extension and
	// falling back to the source format.
	Format     tree.Format       `json:"format"`
	Report     engine.Report     `json:"report"`
	Validation validation.Report `json:"validation"`
	Written    bool              `json:"written"`
}

// Run executes load → rules → validation → save. Any fatal error returns
// before the target is written.
func Run(ctx context.Context, req Request) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("formpatch: context is required")
	}
	if req.Source == "" {
		return Result{}, errors.New("formpatch: source is required")
	}
	logger := req.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	registry := req.Registry
	if registry == nil {
		registry = rules.DefaultRegistry()
	}

	result := Result{Source: req.Source, Target: targetFor(req)}

	doc, format, err := store.Load(ctx, req.Source)
	if err != nil {
		return result, err
	}
	result.Format = tree.FormatForPath(result.Target, format)

	sequence, err := registry.BuildAll(req.Env, req.Rules)
	if err != nil {
		return result, err
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithIdempotenceCheck(!req.SkipIdempotenceCheck),
	}
	if req.RunID != "" {
		opts = append(opts, engine.WithRunID(req.RunID))
	}
	report, err := engine.New(opts...).Apply(ctx, doc, sequence)
	result.Report = report
	if err != nil {
		return result, err
	}

	result.Validation = validation.Validate(doc, validationOptions(req.Env))
	if err := result.Validation.Err(); err != nil {
		for _, issue := range result.Validation.Issues {
			logger.Error("validation issue", "run_id", report.RunID, "code", issue.Code, "path", issue.Path, "message", issue.Message)
		}
		return result, err
	}

	if req.DryRun {
		logger.Info("dry run, target not written", "run_id", report.RunID, "target", result.Target)
		return result, nil
	}
	if err := store.Save(result.Target, doc, result.Format, store.SaveOptions{Source: req.Source, AllowOverwrite: req.InPlace}); err != nil {
		return result, err
	}
	result.Written = true
	logger.Info("document written", "run_id", report.RunID, "target", result.Target, "changed", report.Changed())
	return result, nil
}

// Check loads path and validates it without applying rules.
func Check(ctx context.Context, path string, env Env) (validation.Report, error) {
	doc, _, err := store.Load(ctx, path)
	if err != nil {
		return validation.Report{}, err
	}
	report := validation.Validate(doc, validationOptions(env))
	return report, report.Err()
}

// Patch applies specs to an in-memory document and validates it.
func Patch(ctx context.Context, doc *document.Document, specs []RuleSpec, env Env, options ...engine.Option) (engine.Report, validation.Report, error) {
	sequence, err := rules.DefaultRegistry().BuildAll(env, specs)
	if err != nil {
		return engine.Report{}, validation.Report{}, err
	}
	report, err := engine.New(options...).Apply(ctx, doc, sequence)
	if err != nil {
		return report, validation.Report{}, err
	}
	checked := validation.Validate(doc, validationOptions(env))
	return report, checked, checked.Err()
}

func targetFor(req Request) string {
	switch {
	case req.Target != "":
		return req.Target
	case req.InPlace:
		return req.Source
	default:
		return store.DefaultTarget(req.Source)
	}
}

func validationOptions(env Env) validation.Options {
	return validation.Options{
		Scope:       env.Scope,
		Arrays:      env.Arrays,
		Inspector:   env.Inspector,
		GateControl: env.GateControl,
	}
}
