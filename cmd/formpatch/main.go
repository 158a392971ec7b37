package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	formpatch "github.com/goliatone/go-formpatch"
	"github.com/goliatone/go-formpatch/internal/config"
	"github.com/goliatone/go-formpatch/internal/journal"
	"github.com/goliatone/go-formpatch/internal/prompt"
	"github.com/goliatone/go-formpatch/internal/report"
	"github.com/goliatone/go-formpatch/pkg/rules"
	"github.com/goliatone/go-formpatch/pkg/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr, prompt.Survey())
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

type cli struct {
	v       *viper.Viper
	stdout  io.Writer
	stderr  io.Writer
	confirm prompt.Confirmer

	cfg     *config.Config
	env     rules.Env
	json    bool
	verbose bool
}

func newRootCmd(stdout, stderr io.Writer, confirm prompt.Confirmer) *cobra.Command {
	c := &cli{v: config.New(), stdout: stdout, stderr: stderr, confirm: confirm}

	root := &cobra.Command{
		Use:   "formpatch",
		Short: "Patch and validate form documents",
		Long: `formpatch applies an ordered sequence of rules to a form document
(steps, blocks, rows, fields), validates the result and writes it next to
the source. Rules come from --rule flags or the rules list of formpatch.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(c.v, path)
			if err != nil {
				return err
			}
			env, err := cfg.Env()
			if err != nil {
				return err
			}
			c.cfg, c.env = cfg, env
			c.json, _ = cmd.Flags().GetBool("json")
			c.verbose, _ = cmd.Flags().GetBool("verbose")
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default ./formpatch.yaml)")
	flags.Bool("json", false, "output JSON")
	flags.Bool("verbose", false, "debug logging on stderr")
	flags.String("scope", "", "integration id uniqueness scope (step|document)")
	flags.String("journal", "", "run journal database path")
	_ = c.v.BindPFlag("uniqueness_scope", flags.Lookup("scope"))
	_ = c.v.BindPFlag("journal", flags.Lookup("journal"))

	root.AddCommand(c.applyCmd())
	root.AddCommand(c.validateCmd())
	root.AddCommand(c.rulesCmd())
	root.AddCommand(c.historyCmd())
	return root
}

func (c *cli) applyCmd() *cobra.Command {
	var (
		out        string
		inPlace    bool
		yes        bool
		dryRun     bool
		skipVerify bool
		ruleNames  []string
	)
	cmd := &cobra.Command{
		Use:   "apply SOURCE",
		Short: "Apply rules to a document and write the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if inPlace && out != "" {
				return errors.New("--out and --in-place are mutually exclusive")
			}
			specs := c.cfg.Specs()
			if len(ruleNames) > 0 {
				specs = specsFromNames(ruleNames)
			}
			if len(specs) == 0 {
				return errors.New("no rules given: pass --rule or configure rules in formpatch.yaml")
			}

			ctx := cmd.Context()
			if inPlace && !dryRun && !yes {
				ok, err := c.confirm.Confirm(ctx, prompt.ConfirmConfig{
					Message: fmt.Sprintf("Overwrite %s in place?", args[0]),
					Help:    "The patched document replaces the source file.",
				})
				if err != nil {
					return err
				}
				if !ok {
					return prompt.ErrAborted
				}
			}

			req := formpatch.Request{
				Source:               args[0],
				Target:               out,
				InPlace:              inPlace,
				DryRun:               dryRun,
				Rules:                specs,
				Env:                  c.env,
				Logger:               c.logger(),
				RunID:                uuid.NewString(),
				SkipIdempotenceCheck: skipVerify,
			}
			result, runErr := formpatch.Run(ctx, req)
			c.record(ctx, applyEntry(req, result, runErr))
			if err := c.printApply(result, runErr); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "target path (default <source>.patched<ext>)")
	cmd.Flags().BoolVar(&inPlace, "in-place", false, "overwrite the source")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the in-place confirmation")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "apply and validate without writing")
	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "skip the idempotence verification pass")
	cmd.Flags().StringArrayVar(&ruleNames, "rule", nil, "rule to apply, in order (repeatable; overrides config)")
	return cmd
}

func (c *cli) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate SOURCE",
		Short: "Validate a document without changing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checked, err := formpatch.Check(cmd.Context(), args[0], c.env)
			c.record(cmd.Context(), validateEntry(args[0], err))
			var invalid *validation.ValidationError
			if err != nil && !errors.As(err, &invalid) {
				return err
			}
			printer := report.New(c.stdout)
			if c.json {
				if perr := printer.JSON(checked); perr != nil {
					return perr
				}
				return err
			}
			printer.Validation(checked)
			return err
		},
	}
}

func (c *cli) rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List registered rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := rules.DefaultRegistry().List()
			printer := report.New(c.stdout)
			if c.json {
				return printer.JSON(infos)
			}
			printer.Rules(infos)
			return nil
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Journal == "" {
				return errors.New("no journal configured: pass --journal or set FORMPATCH_JOURNAL")
			}
			j, err := journal.Open(c.cfg.Journal)
			if err != nil {
				return err
			}
			defer j.Close()

			entries, err := j.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printer := report.New(c.stdout)
			if c.json {
				return printer.JSON(entries)
			}
			printer.History(entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs (0 for all)")
	return cmd
}

func (c *cli) logger() *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
}

// record stores entry in the journal when one is configured. Journal
// failures are logged and never change the outcome of the command.
func (c *cli) record(ctx context.Context, entry journal.Entry) {
	if c.cfg.Journal == "" {
		return
	}
	logger := c.logger()
	j, err := journal.Open(c.cfg.Journal)
	if err != nil {
		logger.Warn("journal unavailable, run not recorded", "run_id", entry.RunID, "journal", c.cfg.Journal, "error", err)
		return
	}
	defer j.Close()

	// A cancelled run is still worth recording.
	if err := j.Record(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("journal write failed", "run_id", entry.RunID, "journal", c.cfg.Journal, "error", err)
	}
}

func applyEntry(req formpatch.Request, result formpatch.Result, runErr error) journal.Entry {
	entry := journal.Entry{
		RunID:    req.RunID,
		Source:   req.Source,
		Target:   result.Target,
		Changed:  result.Report.Changed(),
		Warnings: result.Report.Warnings(),
		Status:   journal.StatusApplied,
	}
	for _, spec := range req.Rules {
		entry.Rules = append(entry.Rules, spec.Name)
	}
	switch {
	case runErr != nil:
		entry.Status = journal.StatusFailed
		entry.Error = runErr.Error()
	case !result.Written:
		entry.Status = journal.StatusDryRun
	}
	return entry
}

func validateEntry(source string, checkErr error) journal.Entry {
	entry := journal.Entry{
		RunID:  uuid.NewString(),
		Source: source,
		Rules:  []string{},
		Status: journal.StatusValidated,
	}
	if checkErr != nil {
		entry.Status = journal.StatusFailed
		entry.Error = checkErr.Error()
	}
	return entry
}

func (c *cli) printApply(result formpatch.Result, runErr error) error {
	printer := report.New(c.stdout)
	if c.json {
		payload := struct {
			formpatch.Result
			Error string `json:"error,omitempty"`
		}{Result: result}
		if runErr != nil {
			payload.Error = runErr.Error()
		}
		return printer.JSON(payload)
	}

	if len(result.Report.Rules) > 0 {
		printer.Run(result.Report)
	}
	if result.Validation.Valid || len(result.Validation.Issues) > 0 {
		printer.Validation(result.Validation)
	}
	switch {
	case result.Written:
		printer.Status(report.LevelOK, "wrote "+result.Target)
	case runErr == nil:
		printer.Status(report.LevelWarn, "dry run, "+result.Target+" not written")
	}
	return nil
}

func specsFromNames(names []string) []rules.Spec {
	out := make([]rules.Spec, 0, len(names))
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, rules.Spec{Name: part})
			}
		}
	}
	return out
}
