package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

const rootDesc = `
mcfetch downloads Minecraft launcher artifacts through ordered mirrors,
verifies them against SHA-1 checksums and commits them atomically. It also
resolves mod loader versions for a game version from Fabric, Quilt, Forge
and NeoForge metadata.
`

type globalOptions struct {
	configPath string
	logLevel   string
	rootDir    string
}

func newRootCmd(out io.Writer) *cobra.Command {
	o := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "mcfetch",
		Short:         "launcher artifact downloader and loader version resolver",
		Long:          rootDesc,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", "", "path to configuration file")
	f.StringVar(&o.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	f.StringVar(&o.rootDir, "root", "", "override storage.root_dir")

	cmd.AddCommand(
		newServeCmd(o),
		newVersionsCmd(o, out),
		newFetchCmd(o, out),
		newCleanCmd(o, out),
	)

	return cmd
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
