package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ringphone/pluginhost/internal/prefstore"
)

func initInstall(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "install <package.jpl>",
		Short: "Install a .jpl package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store := prefstore.New(cfg.DataDir)
			dest, err := store.Install(args[0])
			if err != nil {
				return err
			}
			fmt.Println("installed to", dest)
			return nil
		},
	}
	root.AddCommand(cmd)
}
