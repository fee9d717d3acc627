package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sandevgo/tusknet/internal/config"
	"github.com/sandevgo/tusknet/pkg/log"
	"github.com/sandevgo/tusknet/pkg/srv"
)

var serveHTTPAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long:  `Serves the device tools over stdio, or over streamable HTTP when TUSKNET_TRANSPORT=http or --http is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting tusknet")

		appCfg, manifest, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		if serveHTTPAddr != "" {
			appCfg.Transport = config.TransportHTTP
			appCfg.HTTPAddr = serveHTTPAddr
		}

		services := NewServices(ctx, appCfg, manifest)

		srv.StartServices(ctx, stop, services)

		// Wait for shutdown signal or stdin close
		srv.ShutdownServices(ctx, appCfg.GetShutdownTimeout(), services)
		logger.Info().Msg("tusknet has been shut down gracefully")

		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(serveCmd)
}
