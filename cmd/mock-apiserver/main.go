package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentkube/mockcluster/internal/apiserver"
	"github.com/agentkube/mockcluster/internal/fault"
	"github.com/agentkube/mockcluster/internal/mockapi"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		addr           string
		seedFile       string
		errorRate      float64
		minLatency     time.Duration
		maxLatency     time.Duration
		statusInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:          "mock-apiserver",
		Short:        "In-memory mock cluster API for dashboard development",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			opts := mockapi.Options{
				Fault: fault.Config{
					MinLatency: minLatency,
					MaxLatency: maxLatency,
					ErrorRate:  errorRate,
				},
				StatusInterval: statusInterval,
				Logger:         logger,
			}
			if seedFile != "" {
				seed, err := mockapi.LoadSeed(seedFile)
				if err != nil {
					return err
				}
				opts.Seed = seed
			}

			client, err := mockapi.New(opts)
			if err != nil {
				return err
			}
			if err := client.Connect(cmd.Context()); err != nil {
				return err
			}
			defer client.Disconnect()

			server := apiserver.NewServer(client)
			logger.Info("mock-apiserver listening", "addr", addr)
			return http.ListenAndServe(addr, server.Router)
		},
	}

	defaults := fault.DefaultConfig()
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&seedFile, "seed-file", "", "YAML file with initial resources (defaults to built-in fixtures)")
	cmd.Flags().Float64Var(&errorRate, "error-rate", defaults.ErrorRate, "Probability of an injected transient failure per call")
	cmd.Flags().DurationVar(&minLatency, "min-latency", defaults.MinLatency, "Minimum simulated call latency")
	cmd.Flags().DurationVar(&maxLatency, "max-latency", defaults.MaxLatency, "Maximum simulated call latency")
	cmd.Flags().DurationVar(&statusInterval, "status-interval", 5*time.Second, "Agent status simulation interval")
	return cmd
}
