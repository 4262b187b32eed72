package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	logapi "github.com/storefront/mediastore/logger/api"
	logfactory "github.com/storefront/mediastore/logger/factory"
	mediafactory "github.com/storefront/mediastore/media/factory"
	"github.com/storefront/mediastore/telemetry"
)

var version = "1.0.0"

// app holds what every subcommand needs. It is filled in PersistentPreRunE.
type app struct {
	envFiles  []string
	log       logapi.Logger
	svc       *mediafactory.Service
	telemetry *telemetry.Provider
}

func main() {
	ctx := context.Background()
	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "mediactl",
		Short: "Store, remove and clean up supplier and product media assets",
		Long: `mediactl drives the media asset store from the command line.

Configuration comes from the environment (STORAGE_TYPE, MEDIA_*, REDIS_*,
LOG_*, OTEL_*). Files passed with --env-file are loaded first.

Examples:
  mediactl put-logo --supplier 42 ./logo.png
  mediactl put-color --product 7 --color 3 ./spin.mp4
  mediactl rm /storage/suppliers/42/logo/logo.png
  mediactl purge-supplier 42
  mediactl watch`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "dotenv files to load before reading the environment")

	root.AddCommand(newPutLogoCmd(a))
	root.AddCommand(newPutColorCmd(a))
	root.AddCommand(newRemoveCmd(a))
	root.AddCommand(newPurgeSupplierCmd(a))
	root.AddCommand(newWatchCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if len(a.envFiles) > 0 {
		if err := godotenv.Overload(a.envFiles...); err != nil {
			return fmt.Errorf("failed to load env files: %w", err)
		}
	} else {
		// a missing .env is fine
		_ = godotenv.Load()
	}

	log, err := logfactory.NewLoggerFromEnv()
	if err != nil {
		return err
	}
	a.log = log.WithComponent("mediactl")
	logfactory.SetGlobalLogger(a.log)

	ctx := cmd.Context()
	otelCfg, err := telemetry.LoadConfig()
	if err != nil {
		return err
	}
	if a.telemetry, err = telemetry.Setup(ctx, otelCfg); err != nil {
		return err
	}

	a.svc, err = mediafactory.NewFromEnv(ctx, a.log)
	return err
}

// close releases whatever setup managed to create.
func (a *app) close(ctx context.Context) {
	log := logapi.OrNop(a.log)
	if a.svc != nil {
		if err := a.svc.Close(); err != nil {
			log.Warn(ctx, "failed to close media service", logapi.ErrorField(err))
		}
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "telemetry shutdown failed", logapi.ErrorField(err))
	}
}
