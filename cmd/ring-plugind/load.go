package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ringphone/pluginhost/internal/host"
)

func initLoad(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "load <shared-library-path>",
		Short: "Load a single shared library and keep it resident until interrupted",
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
			fmt.Println("loaded", args[0])
			for _, c := range h.Manager.GetComponents(args[0]) {
				fmt.Println("  " + c)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			return h.Manager.Unload(args[0])
		},
	}
	root.AddCommand(cmd)
}
