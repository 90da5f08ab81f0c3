package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

const versionsDesc = `
List the loader versions available for a Minecraft version, most recent
first. With --constraint, print only the best version satisfying a semver
range such as ">= 47.2, < 48" or "~0.15".
`

type versionsOptions struct {
	constraint string
	limit      int
}

func newVersionsCmd(g *globalOptions, out io.Writer) *cobra.Command {
	o := &versionsOptions{}

	cmd := &cobra.Command{
		Use:   "versions <loader> <mc-version>",
		Short: "list loader versions for a game version",
		Long:  versionsDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context(), g, out, strings.ToLower(args[0]), args[1])
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.constraint, "constraint", "", "print the best version matching this semver constraint")
	f.IntVarP(&o.limit, "limit", "n", 0, "show at most this many versions")

	return cmd
}

func (o *versionsOptions) run(ctx context.Context, g *globalOptions, out io.Writer, loader, mc string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.Close()

	if o.constraint != "" {
		v, err := a.resolver.Resolve(ctx, loader, mc, o.constraint)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, v.Raw)
		return nil
	}

	versions, err := a.resolver.GetVersions(ctx, loader, mc)
	if err != nil {
		return err
	}
	if o.limit > 0 && len(versions) > o.limit {
		versions = versions[:o.limit]
	}
	for _, v := range versions {
		fmt.Fprintln(out, v.Raw)
	}
	return nil
}
