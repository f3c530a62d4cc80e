package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ringphone/pluginhost/internal/host"
)

func initServe(root *cobra.Command) {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load every installed plugin and serve the status HTTP surface until signalled",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.MetricsAddr = addr
			}

			h := host.New(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := h.Start(ctx); err != nil {
				return err
			}
			defer h.Stop()

			var srv *http.Server
			if cfg.MetricsAddr != "" {
				srv = &http.Server{Addr: cfg.MetricsAddr, Handler: h.StatusHandler().Handler()}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						fmt.Fprintln(os.Stderr, "ring-plugind: status server:", err)
					}
				}()
			}

			<-ctx.Done()
			if srv != nil {
				_ = srv.Shutdown(context.Background())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "address to serve the read-only status API on (overrides config)")
	root.AddCommand(cmd)
}
