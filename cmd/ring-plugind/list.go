package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ringphone/pluginhost/internal/host"
)

func initList(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Load every installed plugin, print their paths and components, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			h := host.New(cfg)
			ctx := context.Background()
			if err := h.Start(ctx); err != nil {
				return err
			}
			defer h.Stop()

			for _, path := range h.Manager.GetLoadedPlugins() {
				fmt.Println(path)
				for _, c := range h.Manager.GetComponents(path) {
					fmt.Println("  " + c)
				}
			}
			return nil
		},
	}
	root.AddCommand(cmd)
}
