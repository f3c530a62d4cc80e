package main

import (
	"github.com/spf13/cobra"

	"github.com/ringphone/pluginhost/internal/host"
)

func initUnload(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "unload <shared-library-path>",
		Short: "Load then immediately unload a shared library, printing any error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			h := host.New(cfg)
			if err := h.Manager.Load(args[0]); err != nil {
				return err
			}
			return h.Manager.Unload(args[0])
		},
	}
	root.AddCommand(cmd)
}
