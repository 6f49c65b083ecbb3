package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/OpenMined/syft-rds/pkg/datasite"
	"github.com/OpenMined/syft-rds/pkg/log"
	"github.com/OpenMined/syft-rds/pkg/rpc"
	"github.com/OpenMined/syft-rds/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Data Owner RPC endpoints from the datasite mailbox",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagEmail == "" {
			return fmt.Errorf("serve needs --email (the datasite owner)")
		}
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		layout := datasite.NewLayout(flagRoot, flagEmail)
		app, err := server.NewApp(layout)
		if err != nil {
			return fmt.Errorf("failed to build server: %v", err)
		}

		srv, err := rpc.NewServer(rpc.ServerConfig{Layout: layout}, app.Mux)
		if err != nil {
			return fmt.Errorf("failed to build mailbox server: %v", err)
		}
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start mailbox server: %v", err)
		}

		if metricsAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				logger := log.WithComponent("serve")
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					logger.Error().Err(err).Msg("metrics server stopped")
				}
			}()
			fmt.Printf("Metrics on %s/metrics\n", metricsAddr)
		}

		fmt.Printf("Serving datasite %s from %s. Press Ctrl+C to stop.\n", flagEmail, flagRoot)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nShutting down...")
		return srv.Stop()
	},
}

func init() {
	serveCmd.Flags().String("metrics-addr", "", "address for the Prometheus metrics endpoint (disabled when empty)")
}
