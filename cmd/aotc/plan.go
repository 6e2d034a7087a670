package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aotc/internal/plan"
	"aotc/internal/trace"
)

type planOptions struct {
	policy      policyFlags
	format      string
	jobs        int
	cache       bool
	cacheClear  bool
	cacheDir    string
	hideForeign bool
	ui          string
}

func newPlanCmd() *cobra.Command {
	var opts planOptions
	cmd := &cobra.Command{
		Use:   "plan [manifest]",
		Short: "Show which output module owns each type, method body and dictionary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args, &opts)
		},
	}
	opts.policy.register(cmd)
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format (text|yaml)")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "max modules evaluated in parallel (0=auto)")
	cmd.Flags().BoolVar(&opts.cache, "cache", false, "reuse plans cached by manifest digest")
	cmd.Flags().BoolVar(&opts.cacheClear, "cache-clear", false, "drop every cached plan before planning")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", "", "cache directory (default $XDG_CACHE_HOME/aotc)")
	cmd.Flags().BoolVar(&opts.hideForeign, "hide-foreign", false, "omit entities owned by other output modules (text format)")
	cmd.Flags().StringVar(&opts.ui, "ui", "auto", "progress view on stderr (auto|on|off)")
	return cmd
}

func runPlan(cmd *cobra.Command, args []string, opts *planOptions) (err error) {
	format := strings.ToLower(opts.format)
	switch format {
	case "text", "yaml":
	default:
		return fmt.Errorf("unsupported format %q (must be text or yaml)", opts.format)
	}
	mode, err := readUIMode(opts.ui)
	if err != nil {
		return err
	}
	color, err := useColor(cmd)
	if err != nil {
		return err
	}
	timer, err := timingsEnabled(cmd)
	if err != nil {
		return err
	}

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer func() { cleanup(err != nil) }()

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	ctx := cmd.Context()
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, "plan", 0)
	defer span.End("")
	ctx = trace.WithSpan(ctx, span)
	cmd.SetContext(ctx)

	l, err := loadProject(cmd, args, &opts.policy, timer)
	if err != nil {
		return err
	}

	var cache *plan.Cache
	key := plan.Key(l.project.Digest, l.opts.Strategy.String(), l.opts.Output)
	if opts.cache || opts.cacheClear {
		if cache, err = plan.OpenCache(opts.cacheDir); err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		span.WithExtra("cache_dir", cache.Dir())
	}
	if opts.cacheClear {
		if err := cache.DropAll(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
	}
	if !opts.cache {
		cache = nil
	}

	pl, hit, err := cache.Get(key)
	if err != nil {
		// a corrupt entry is recomputed and overwritten
		fmt.Fprintf(cmd.ErrOrStderr(), "cache: %v\n", err)
	}
	if cache != nil {
		trace.Point(trace.FromContext(ctx), trace.ScopePass, "cache", key.Short()+" hit="+fmt.Sprint(hit), span.ID())
	}

	if !hit {
		pol, err := newPolicy(l, timer)
		if err != nil {
			return err
		}
		evalOpts := plan.Options{Jobs: opts.jobs}
		err = timer.Measure("evaluate", func() error {
			var err error
			if shouldUseTUI(mode, cmd.ErrOrStderr()) {
				title := fmt.Sprintf("planning %s (%s)", strings.Join(l.opts.Output, ","), l.opts.Strategy)
				pl, err = evaluateWithUI(ctx, cmd.ErrOrStderr(), title, pol, l.project.Context, evalOpts)
				return err
			}
			pl, err = plan.Evaluate(ctx, pol, l.project.Context, evalOpts)
			return err
		})
		if err != nil {
			return err
		}
		if err := cache.Put(key, pl); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "cache: %v\n", err)
		}
	}

	err = timer.Measure("render", func() error {
		if format == "yaml" {
			return plan.WriteYAML(cmd.OutOrStdout(), pl)
		}
		return plan.WriteText(cmd.OutOrStdout(), pl, plan.TextOptions{Color: color, HideForeign: opts.hideForeign})
	})
	if err != nil {
		return err
	}

	if timer != nil {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	return nil
}
