// Command reduxfifod is the ReduxFIFO daemon: it owns the CAN bus
// fabric and exposes it over a control-plane gRPC service, following
// the teacher's director-process shape (load config, init logging,
// run until interrupted).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/redux-robotics/reduxfifo/internal/config"
	"github.com/redux-robotics/reduxfifo/internal/controlplane"
	"github.com/redux-robotics/reduxfifo/internal/fabric"
	"github.com/redux-robotics/reduxfifo/internal/logging"

	_ "github.com/redux-robotics/reduxfifo/internal/backend/halcan"
	_ "github.com/redux-robotics/reduxfifo/internal/backend/rdxusb"
	_ "github.com/redux-robotics/reduxfifo/internal/backend/slcan"
	_ "github.com/redux-robotics/reduxfifo/internal/backend/socketcan"
	_ "github.com/redux-robotics/reduxfifo/internal/backend/wsbackend"
)

var cmd Cmd

// Cmd is the command line arguments.
type Cmd struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string
}

var rootCmd = &cobra.Command{
	Use:   "reduxfifod",
	Short: "ReduxFIFO CAN bus multiplexer daemon",
	Run: func(rawCmd *cobra.Command, args []string) {
		if err := run(cmd); err != nil {
			if errors.Is(err, Interrupted{}) {
				return
			}
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cmd.ConfigPath, "config", "c", "", "Path to the configuration file (required)")
	rootCmd.MarkFlagRequired("config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd Cmd) error {
	cfg, err := config.LoadConfig(cmd.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, _, err := logging.Init(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer log.Sync()

	fab := fabric.New(log, cfg.MaxBuses)

	ctx := context.Background()
	for _, b := range cfg.Buses {
		busID, err := fab.OpenOrGetBus(ctx, b.Params)
		if err != nil {
			return fmt.Errorf("failed to open preconfigured bus %q: %w", b.Params, err)
		}
		log.Infow("opened preconfigured bus", "bus_id", busID, "params", b.Params)
	}

	server := controlplane.NewServer(fab, log, cfg)

	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return server.Run(ctx)
	})
	wg.Go(func() error {
		err := WaitInterrupted(ctx)
		log.Infof("caught signal: %v", err)
		return err
	})

	return wg.Wait()
}

type Interrupted struct {
	os.Signal
}

func (m Interrupted) Error() string {
	return m.String()
}

// WaitInterrupted blocks until either SIGINT or SIGTERM is received or
// the provided context is canceled.
func WaitInterrupted(ctx context.Context) error {
	ch := make(chan os.Signal, 1)

	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case v := <-ch:
		return Interrupted{Signal: v}
	case <-ctx.Done():
		return ctx.Err()
	}
}
