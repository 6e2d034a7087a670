package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"aotc/internal/partition"
	"aotc/internal/plan"
	"aotc/internal/types"
	"aotc/internal/ui"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

// shouldUseTUI resolves mode against the stream the view is drawn on.
func shouldUseTUI(mode uiMode, out io.Writer) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		f, ok := out.(*os.File)
		return ok && isTerminal(f)
	}
}

type evalOutcome struct {
	plan *plan.Plan
	err  error
}

// evaluateWithUI runs plan.Evaluate while a progress view draws on out.
func evaluateWithUI(ctx context.Context, out io.Writer, title string, pol partition.Policy, tctx *types.Context, opts plan.Options) (*plan.Plan, error) {
	events := make(chan plan.Event, 256)
	outcomeCh := make(chan evalOutcome, 1)
	modules := plan.Modules(tctx)

	go func() {
		opts.Progress = plan.ChannelSink{Ch: events}
		pl, err := plan.Evaluate(ctx, pol, tctx, opts)
		outcomeCh <- evalOutcome{plan: pl, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, modules, events)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// the view may quit before the last event; keep workers unblocked
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if outcome.err != nil {
		return nil, outcome.err
	}
	if uiErr != nil {
		return nil, fmt.Errorf("progress view: %w", uiErr)
	}
	return outcome.plan, nil
}
