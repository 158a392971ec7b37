// Package prompt asks the operator to confirm destructive actions.
package prompt

import (
	"context"
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted signals the operator aborted the prompt (e.g., Ctrl+C).
var ErrAborted = errors.New("prompt: aborted")

// ConfirmConfig configures a yes/no prompt.
type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// Confirmer abstracts the terminal so commands can be tested without one.
type Confirmer interface {
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
}

// Survey returns a Confirmer backed by an interactive terminal prompt.
func Survey(opts ...survey.AskOpt) Confirmer {
	return &surveyConfirmer{opts: opts}
}

type surveyConfirmer struct {
	opts []survey.AskOpt
}

func (s *surveyConfirmer) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var out bool
	p := &survey.Confirm{
		Message: cfg.Message,
		Help:    cfg.Help,
		Default: cfg.Default,
	}
	if err := survey.AskOne(p, &out, s.opts...); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

// Static answers every prompt with the same value.
type Static bool

func (s Static) Confirm(ctx context.Context, _ ConfirmConfig) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return bool(s), nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}
