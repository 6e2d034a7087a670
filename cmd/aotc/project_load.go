package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"aotc/internal/observ"
	"aotc/internal/partition"
	"aotc/internal/project"
	"aotc/internal/trace"
)

func errInvalidColor(v string) error {
	return fmt.Errorf("invalid --color %q (expected: auto|on|off)", v)
}

// policyFlags are the [compilation] overrides shared by plan and check.
type policyFlags struct {
	strategy string
	output   []string
}

func (f *policyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "override [compilation].strategy (single|split)")
	cmd.Flags().StringSliceVar(&f.output, "output", nil, "override [compilation].output (comma-separated module names)")
}

// loaded is a project with the policy options selected for this run.
type loaded struct {
	project *project.Project
	opts    partition.Options
}

// loadProject resolves the manifest named by args (or found upwards from the
// working directory), loads it and applies the flag overrides.
func loadProject(cmd *cobra.Command, args []string, flags *policyFlags, timer *observ.Timer) (*loaded, error) {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	tracer := trace.FromContext(cmd.Context())
	span := trace.Begin(tracer, trace.ScopePass, "load", trace.CurrentSpan(cmd.Context()))
	defer span.End("")

	var p *project.Project
	err := timer.Measure("load", func() error {
		path, err := project.ResolveManifest(arg)
		if err != nil {
			return err
		}
		p, err = project.Load(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	span.WithExtra("digest", p.Digest.Short())

	strategyName := p.Manifest.Compilation.Strategy
	if flags.strategy != "" {
		strategyName = flags.strategy
	}
	strategy, err := partition.ParseStrategy(strategyName)
	if err != nil {
		return nil, err
	}
	output := p.Manifest.Compilation.Output
	if flags.output != nil {
		output = make([]string, len(flags.output))
		for i, name := range flags.output {
			output[i] = project.NormalizeName(name)
		}
	}
	if strategy == partition.StrategySplitByModule && len(output) == 0 {
		return nil, fmt.Errorf("split compilation needs output modules: %w (set [compilation].output or --output)", partition.ErrNoOutputModules)
	}
	opts, err := p.Options(strategy, output)
	if err != nil {
		return nil, err
	}
	return &loaded{project: p, opts: opts}, nil
}

// newPolicy builds the policy for l, timed as its own phase.
func newPolicy(l *loaded, timer *observ.Timer) (partition.Policy, error) {
	var pol partition.Policy
	err := timer.Measure("policy", func() error {
		var err error
		pol, err = partition.New(l.project.Context, l.opts)
		return err
	})
	if errors.Is(err, partition.ErrUnknownModule) {
		return nil, fmt.Errorf("%w (declared modules: %v)", err, l.project.Index.IDToName)
	}
	return pol, err
}

func timingsEnabled(cmd *cobra.Command) (*observ.Timer, error) {
	on, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil || !on {
		return nil, err
	}
	return observ.NewTimer(), nil
}
