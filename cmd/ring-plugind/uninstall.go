package main

import (
	"github.com/spf13/cobra"

	"github.com/ringphone/pluginhost/internal/prefstore"
)

func initUninstall(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "uninstall <installed-plugin-dir>",
		Short: "Uninstall a previously installed plugin directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store := prefstore.New(cfg.DataDir)
			return store.Uninstall(args[0])
		},
	}
	root.AddCommand(cmd)
}
