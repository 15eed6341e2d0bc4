/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/midiwire/pkg/di"
	"github.com/ssargent/midiwire/pkg/notification"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the midiwire REST API over a loopback router and the clip store.

Endpoints named with --endpoint are created at startup. With --record every
list delivered to them is appended to the capture journal under the data
directory.

Examples:
  midiwire serve
  midiwire serve --port 9000 --endpoint synth --endpoint drums --record`,
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := newContainer(cmd)
		if err != nil {
			return err
		}
		defer container.Close()

		cfg := container.Config()
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			cfg.Bind, _ = cmd.Flags().GetString("bind")
		}
		if apiKey, _ := cmd.Flags().GetString("api-key"); apiKey != "" {
			cfg.Security.APIKey = apiKey
		}
		if cfg.Security.APIKey == "" || cfg.Security.APIKey == "auto" {
			return fmt.Errorf("no API key configured: run 'midiwire init' or pass --api-key")
		}

		endpoints, _ := cmd.Flags().GetStringSlice("endpoint")
		record, _ := cmd.Flags().GetBool("record")
		if err := setupEndpoints(container, endpoints, record); err != nil {
			return err
		}

		server, err := container.Server()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cmd.Printf("Starting midiwire REST API server on %s (%v)\n", server.Addr(), container.Layout())
		cmd.Printf("Metrics available at: http://%s/metrics\n", server.Addr())
		return runServer(ctx, container, server.ListenAndServe)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (default from config)")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind (default from config)")
	serveCmd.Flags().String("api-key", "", "API key (overrides the config file)")
	serveCmd.Flags().StringSlice("endpoint", nil, "Endpoint to create at startup (repeatable)")
	serveCmd.Flags().Bool("record", false, "Journal every list delivered to the startup endpoints")
}

// setupEndpoints creates the startup endpoints and, when record is set,
// journals everything delivered to them
func setupEndpoints(container *di.Container, endpoints []string, record bool) error {
	router, err := container.Router()
	if err != nil {
		return err
	}

	logger := container.Logger()
	router.Notify(func(n notification.Notification) {
		switch n := n.(type) {
		case notification.ObjectAdded:
			logger.Printf("endpoint object %d added", n.Child)
		case notification.ObjectRemoved:
			logger.Printf("endpoint object %d removed", n.Child)
		default:
			logger.Printf("notification %d", n.MessageID())
		}
	})

	for _, name := range endpoints {
		if err := router.CreateDestination(name); err != nil {
			return err
		}
	}

	if !record {
		return nil
	}
	recorder, err := container.Recorder()
	if err != nil {
		return err
	}
	for _, name := range endpoints {
		if err := recorder.Follow(router, name); err != nil {
			return err
		}
	}
	logger.Printf("recording %d endpoints to %s", len(endpoints), container.JournalPath())
	return nil
}

// runServer runs serve until ctx is cancelled, then drops undelivered lists
func runServer(ctx context.Context, container *di.Container, serve func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return serve(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		router, err := container.Router()
		if err != nil {
			return err
		}
		if dropped := router.Flush(); dropped > 0 {
			container.Logger().Printf("dropped %d undelivered lists on shutdown", dropped)
		}
		return nil
	})

	return g.Wait()
}
