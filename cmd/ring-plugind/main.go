// Command ring-plugind hosts the plugin subsystem: it loads installed
// plugins, serves the read-only status surface, and offers ad hoc
// install/load/unload subcommands for debugging a single plugin outside
// of a running daemon. Structured as one cobra command tree per
// subcommand, each registering itself with the root command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "ring-plugind",
		Short: "Host for the softphone's dynamically loaded plugins",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the host's YAML config file")

	initServe(root)
	initList(root)
	initLoad(root)
	initUnload(root)
	initInstall(root)
	initUninstall(root)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
