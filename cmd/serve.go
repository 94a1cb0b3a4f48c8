package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hbenedek/dial-a-ride/internal/restapi"
	"github.com/hbenedek/dial-a-ride/sim"
)

var (
	serveAddr    string
	serveMaxStep int
	serveSpeed   float64
)

// serveCmd exposes the step interface over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve DARP episodes over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		api := restapi.New(logrus.StandardLogger(), restapi.Defaults{
			MaxStep:   serveMaxStep,
			Speed:     serveSpeed,
			Penalties: sim.DefaultPenalties(),
		})
		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           api.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logrus.Errorf("Shutdown failed: %v", err)
			}
		}()

		logrus.Infof("Listening on %s", serveAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server failed: %v", err)
		}
		logrus.Info("Server stopped.")
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().IntVar(&serveMaxStep, "max-step", 1000, "Default decision limit for new episodes")
	serveCmd.Flags().Float64Var(&serveSpeed, "speed", sim.DefaultSpeed, "Default vehicle speed for new episodes")
	rootCmd.AddCommand(serveCmd)
}
