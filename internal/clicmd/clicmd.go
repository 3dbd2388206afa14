// Package clicmd provides small cobra helpers shared by cmd/hdcore's
// subcommands.
package clicmd

import (
	"context"

	"github.com/spf13/cobra"
)

// NewSubcommandGroup returns a *cobra.Command named name that does
// nothing itself beyond dispatching to one of subs; running it with no
// subcommand prints help rather than erroring.
func NewSubcommandGroup(name string, subs ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: name + " commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(subs...)
	return cmd
}

// WithApp runs fn with ctx, bounding a subcommand's lifetime to a
// single context.Context.
func WithApp(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
