package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"aotc/internal/testkit"
	"aotc/internal/trace"
)

func newCheckCmd() *cobra.Command {
	var flags policyFlags
	cmd := &cobra.Command{
		Use:   "check [manifest]",
		Short: "Load a manifest and verify the policy answers are consistent",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			useCol, err := useColor(cmd)
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

			span := trace.Begin(trace.FromContext(cmd.Context()), trace.ScopeDriver, "check", 0)
			defer span.End("")
			cmd.SetContext(trace.WithSpan(cmd.Context(), span))

			l, err := loadProject(cmd, args, &flags, timer)
			if err != nil {
				return err
			}
			pol, err := newPolicy(l, timer)
			if err != nil {
				return err
			}
			err = timer.Measure("check", func() error {
				return testkit.CheckPolicyInvariants(pol, l.project.Context)
			})

			ok := color.New(color.FgGreen, color.Bold)
			bad := color.New(color.FgRed, color.Bold)
			if !useCol {
				ok.DisableColor()
				bad.DisableColor()
			} else {
				ok.EnableColor()
				bad.EnableColor()
			}
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", bad.Sprint("FAIL"), l.project.Path, err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %d modules, %d types, %d methods)\n",
				ok.Sprint("OK"), l.project.Path, l.opts.Strategy,
				len(l.project.Context.Modules()), len(l.project.Context.Types()), len(l.project.Context.Methods()))
			batches := l.project.BuildOrder()
			order := make([]string, len(batches))
			for i, b := range batches {
				order[i] = strings.Join(b, ",")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "build order: %s\n", strings.Join(order, " -> "))
			if timer != nil {
				fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
