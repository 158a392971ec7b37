package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/goliatone/go-formpatch/pkg/document"
	"github.com/goliatone/go-formpatch/pkg/rules"
)

// Option customises an Engine.
type Option func(*Engine)

// WithLogger routes engine logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithIdempotenceCheck toggles the verification pass. It is enabled by
// default.
func WithIdempotenceCheck(enabled bool) Option {
	return func(e *Engine) {
		e.verify = enabled
	}
}

// WithRunID fixes the identifier attached to reports and log records.
// Without it every Apply call generates a random one.
func WithRunID(id string) Option {
	return func(e *Engine) {
		e.runID = id
	}
}

// Engine runs rule sequences against documents. An Engine holds no
// per-document state and may be reused sequentially.
type Engine struct {
	logger *slog.Logger
	verify bool
	runID  string
}

// New constructs an Engine.
func New(options ...Option) *Engine {
	e := &Engine{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		verify: true,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// RuleReport summarises one rule application.
type RuleReport struct {
	Rule     string          `json:"rule"`
	Changed  int             `json:"changed"`
	Warnings []rules.Warning `json:"warnings,omitempty"`
}

// Report summarises a run.
type Report struct {
	RunID    string       `json:"run_id"`
	Rules    []RuleReport `json:"rules"`
	Verified bool         `json:"verified"`
}

// Changed returns the total number of changes across rules.
func (r Report) Changed() int {
	total := 0
	for _, rule := range r.Rules {
		total += rule.Changed
	}
	return total
}

// Warnings flattens the warnings of every rule in order.
func (r Report) Warnings() []rules.Warning {
	var out []rules.Warning
	for _, rule := range r.Rules {
		out = append(out, rule.Warnings...)
	}
	return out
}

// Plan checks a rule sequence against the constraints each rule declares.
// A rule with Before label L must precede every rule labelled L, a rule with
// After label L must follow them, and a rule excluding L may not share a
// sequence with any rule labelled L.
func Plan(sequence []rules.Rule) error {
	constraints := make([]rules.Constraints, len(sequence))
	for idx, rule := range sequence {
		if rule == nil {
			return fmt.Errorf("engine: rule #%d is nil", idx)
		}
		constraints[idx] = rules.ConstraintsOf(rule)
	}

	var conflicts []Conflict
	for i, rule := range sequence {
		for j, other := range sequence {
			if i == j {
				continue
			}
			for _, label := range constraints[i].Before {
				if j < i && constraints[j].HasLabel(label) {
					conflicts = append(conflicts, Conflict{Kind: ConflictOrder, Rule: rule.Name(), Other: other.Name(), Label: label, RuleIndex: i, OtherIndex: j})
				}
			}
			for _, label := range constraints[i].After {
				if j > i && constraints[j].HasLabel(label) {
					conflicts = append(conflicts, Conflict{Kind: ConflictOrder, Rule: rule.Name(), Other: other.Name(), Label: label, RuleIndex: i, OtherIndex: j})
				}
			}
			for _, label := range constraints[i].Excludes {
				if constraints[j].HasLabel(label) {
					conflicts = append(conflicts, Conflict{Kind: ConflictExclusion, Rule: rule.Name(), Other: other.Name(), Label: label, RuleIndex: i, OtherIndex: j})
				}
			}
		}
	}
	if len(conflicts) > 0 {
		return &RuleConflictError{Conflicts: conflicts}
	}
	return nil
}

// Apply plans sequence, then runs each rule against doc in order. When the
// idempotence check is enabled every rule is applied a second time and any
// further change fails the run with *IdempotenceError.
func (e *Engine) Apply(ctx context.Context, doc *document.Document, sequence []rules.Rule) (Report, error) {
	if ctx == nil {
		return Report{}, errors.New("engine: context is required")
	}
	if doc == nil {
		return Report{}, errors.New("engine: document is nil")
	}
	if err := Plan(sequence); err != nil {
		return Report{}, err
	}

	runID := e.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := e.logger.With("run_id", runID)
	report := Report{RunID: runID, Rules: make([]RuleReport, 0, len(sequence))}

	for _, rule := range sequence {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result, err := rule.Apply(doc)
		if err != nil {
			return report, fmt.Errorf("engine: apply %s: %w", rule.Name(), err)
		}
		report.Rules = append(report.Rules, RuleReport{Rule: rule.Name(), Changed: result.Changed, Warnings: result.Warnings})
		logger.Info("rule applied", "rule", rule.Name(), "changed", result.Changed, "warnings", len(result.Warnings))
		for _, w := range result.Warnings {
			logger.Warn(w.Message, "rule", w.Rule, "path", w.Path)
		}
	}

	if !e.verify {
		return report, nil
	}

	var unstable []string
	for _, rule := range sequence {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result, err := rule.Apply(doc)
		if err != nil {
			return report, fmt.Errorf("engine: verify %s: %w", rule.Name(), err)
		}
		if result.Changed > 0 {
			logger.Error("rule not idempotent", "rule", rule.Name(), "changed", result.Changed)
			unstable = append(unstable, rule.Name())
		}
	}
	if len(unstable) > 0 {
		return report, &IdempotenceError{Rules: unstable, Report: report}
	}
	report.Verified = true
	logger.Debug("idempotence verified", "rules", len(sequence))
	return report, nil
}
