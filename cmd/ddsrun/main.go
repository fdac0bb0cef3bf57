// Command ddsrun drives one Runtime (pkg/domain) from an on-disk
// configuration file, grounded on
// controlplane/cmd/yncp-director/main.go's cobra + errgroup + signal
// shutdown shape.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ddsgo/cyclone/internal/ddserror"
	"github.com/ddsgo/cyclone/internal/logging"
	"github.com/ddsgo/cyclone/internal/runtimeconfig"
	"github.com/ddsgo/cyclone/pkg/domain"
)

var cmd Cmd

// Cmd is the command line arguments.
type Cmd struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string
}

var rootCmd = &cobra.Command{
	Use:   "ddsrun",
	Short: "Run a DDS participant runtime",
	Run: func(rawCmd *cobra.Command, args []string) {
		if err := run(cmd); err != nil {
			if errors.Is(err, Interrupted{}) {
				return
			}

			fmt.Printf("ERROR: %v\n", err)
			os.Exit(exitCodeFor(err))
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
	cfg, err := runtimeconfig.LoadConfig(cmd.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, _, err := logging.Init(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer log.Sync()

	rt := domain.NewRuntime()
	if _, err := rt.CreateParticipant(defaultParticipantGuid(), cfg.Domain); err != nil {
		return fmt.Errorf("failed to create default participant: %w", err)
	}

	ctx := context.Background()
	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return rt.Run(ctx)
	})
	wg.Go(func() error {
		err := WaitInterrupted(ctx)
		log.Infow("caught signal, shutting down", "err", err)
		rt.Shutdown()

		grace := time.NewTimer(runtimeconfig.ShutdownGracePeriod())
		defer grace.Stop()
		select {
		case <-grace.C:
		case <-ctx.Done():
		}
		return err
	})

	return wg.Wait()
}

// defaultParticipantGuid is the GUID assigned to the single participant
// ddsrun creates at startup; a future multi-participant configuration
// format would instead read a list of GUIDs from cfg.
func defaultParticipantGuid() domain.Guid {
	var g domain.Guid
	g[0] = 1
	return g
}

// exitCodeFor maps err to a process exit code per ddserror.Kind.ExitCode,
// falling back to 1 for errors outside that taxonomy (e.g. config load
// failures, signal-wait errors).
func exitCodeFor(err error) int {
	var derr *ddserror.Error
	if errors.As(err, &derr) {
		return derr.Kind.ExitCode()
	}
	return 1
}

type Interrupted struct {
	os.Signal
}

func (m Interrupted) Error() string {
	return m.String()
}

// WaitInterrupted blocks until either SIGINT or SIGTERM signal is received or
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
