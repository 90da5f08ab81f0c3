package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/domain/event"
	"github.com/vertextoedge/mcfetch/internal/service/downloader"
)

const fetchDesc = `
Download one artifact into the storage root. The URL is tried through every
matching mirror before the canonical host. Pass --sha1 to verify the result;
a mismatch discards the file and exits non-zero.
`

type fetchOptions struct {
	resourceType string
	sha1         string
	sidecar      bool
	skipPresent  bool
	progress     bool
	jsonOutput   bool
}

func newFetchCmd(g *globalOptions, out io.Writer) *cobra.Command {
	o := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch <url> <dest>",
		Short: "download and verify one artifact",
		Long:  fetchDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(g, out, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.resourceType, "type", "t", "other", "resource type (library, asset, loader-installer, server-jar, mod, other)")
	f.StringVar(&o.sha1, "sha1", "", "expected SHA-1 checksum")
	f.BoolVar(&o.sidecar, "sidecar", false, "verify against a <url>.sha1 file when no checksum is given")
	f.BoolVar(&o.skipPresent, "skip-present", false, "skip the download if the ledger already has this checksum")
	f.BoolVar(&o.progress, "progress", true, "print progress to stderr")
	f.BoolVar(&o.jsonOutput, "json", false, "print the result as JSON")

	return cmd
}

func (o *fetchOptions) run(g *globalOptions, out io.Writer, url, dest string) error {
	rt, err := domain.ParseResourceType(o.resourceType)
	if err != nil {
		return err
	}

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.Close()

	if o.progress {
		a.dispatcher.Subscribe(event.NewFuncHandler(func(e event.DomainEvent) {
			p, ok := e.(event.DownloadProgressed)
			if !ok {
				return
			}
			if p.HasTotal() {
				fmt.Fprintf(os.Stderr, "\r%s / %s (%.0f%%) %s/s   ",
					humanize.Bytes(uint64(p.BytesDownloaded)), humanize.Bytes(uint64(p.BytesTotal)),
					p.Percent(), humanize.Bytes(uint64(p.Rate)))
			} else {
				fmt.Fprintf(os.Stderr, "\r%s %s/s   ",
					humanize.Bytes(uint64(p.BytesDownloaded)), humanize.Bytes(uint64(p.Rate)))
			}
		}, event.NameDownloadProgress))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := a.downloader.Fetch(ctx, downloader.Request{
		ResourceType:     rt,
		URL:              url,
		Dest:             dest,
		ExpectedChecksum: o.sha1,
		VerifySidecar:    o.sidecar,
		SkipIfPresent:    o.skipPresent,
	})
	if o.progress {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	if o.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	status := "downloaded"
	if result.Skipped {
		status = "already present"
	}
	fmt.Fprintf(out, "%s: %s (%s, sha1 %s) via %s\n",
		status, result.Path, humanize.Bytes(uint64(result.Size)), result.SHA1, result.Mirror)
	return nil
}
