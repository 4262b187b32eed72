package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/storefront/mediastore/events"
	logapi "github.com/storefront/mediastore/logger/api"
	"github.com/storefront/mediastore/media"
	"github.com/storefront/mediastore/usage"
)

type putFlags struct {
	name   string
	update bool
}

func (f *putFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "file name without extension (default: the local file's base name)")
	cmd.Flags().BoolVar(&f.update, "update", false, "reuse an existing asset with the same name instead of replacing it")
}

func openUpload(path string, name string) (media.UploadRequest, func(), error) {
	file, err := os.Open(path)
	if err != nil {
		return media.UploadRequest{}, nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return media.UploadRequest{}, nil, err
	}
	req := media.UploadRequest{
		Content:          file,
		Size:             info.Size(),
		OriginalFilename: filepath.Base(path),
		Name:             name,
	}
	return req, func() { _ = file.Close() }, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newPutLogoCmd(a *app) *cobra.Command {
	var (
		flags      putFlags
		supplierID int64
	)
	cmd := &cobra.Command{
		Use:   "put-logo FILE",
		Short: "Store a supplier logo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, done, err := openUpload(args[0], flags.name)
			if err != nil {
				return err
			}
			defer done()

			put := a.svc.Uploader.CreateSupplierLogo
			if flags.update {
				put = a.svc.Uploader.UpdateSupplierLogo
			}
			asset, err := put(cmd.Context(), supplierID, req)
			if err != nil {
				return err
			}
			return printJSON(cmd, asset.Record())
		},
	}
	cmd.Flags().Int64Var(&supplierID, "supplier", 0, "supplier id")
	_ = cmd.MarkFlagRequired("supplier")
	flags.register(cmd)
	return cmd
}

func newPutColorCmd(a *app) *cobra.Command {
	var (
		flags              putFlags
		productID, colorID int64
	)
	cmd := &cobra.Command{
		Use:   "put-color FILE",
		Short: "Store a picture or video of a product colour",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, done, err := openUpload(args[0], flags.name)
			if err != nil {
				return err
			}
			defer done()

			put := a.svc.Uploader.StoreColorPicture
			if flags.update {
				put = a.svc.Uploader.UpdateColorPicture
			}
			asset, err := put(cmd.Context(), productID, colorID, req)
			if err != nil {
				return err
			}
			return printJSON(cmd, asset.Record())
		},
	}
	cmd.Flags().Int64Var(&productID, "product", 0, "product id")
	cmd.Flags().Int64Var(&colorID, "color", 0, "colour id")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("color")
	flags.register(cmd)
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm URL...",
		Short: "Remove assets by their public URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, u := range args {
				removed := a.svc.Uploader.RemoveAsset(cmd.Context(), u)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tremoved=%t\n", u, removed)
			}
			return nil
		},
	}
}

func newPurgeSupplierCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-supplier ID",
		Short: "Remove every asset stored for a supplier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid supplier id %q: %w", args[0], err)
			}
			removed := a.svc.Uploader.RemoveSupplier(cmd.Context(), id)
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d assets\n", removed)
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		cleanup    bool
		tallyUsage bool
		flushEvery time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print asset events and optionally retry failed deletions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, ok := a.svc.Publisher.(events.Subscriber)
			if !ok {
				return errors.New("watch needs MEDIA_EVENTS_ENABLED=true and MEDIA_EVENTS_TYPE=redis or kafka")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var tally *usage.Tally
			if tallyUsage {
				if a.svc.Redis() == nil {
					return errors.New("--usage needs a Redis connection (MEDIA_LOCK_TYPE=redis or MEDIA_EVENTS_TYPE=redis)")
				}
				tally = usage.NewTally(a.svc.Redis(), usage.DefaultPrefix, flushEvery, 100, 256)
				go tally.Start(ctx)
				defer tally.Stop()
			}

			cleaner := media.NewCleaner(a.svc.Uploader.Store(), a.log)
			handler := func(ctx context.Context, ev events.Event) error {
				if err := printJSON(cmd, ev); err != nil {
					return err
				}
				if tally != nil {
					_ = tally.Handle(ctx, ev)
				}
				if cleanup {
					return cleaner.Handle(ctx, ev)
				}
				return nil
			}
			onError := func(err error) {
				a.log.Error(ctx, "event handling failed", err)
			}
			if err := sub.Subscribe(ctx, handler, onError); err != nil {
				return err
			}
			a.log.Info(ctx, "watching asset events", logapi.String("channel", sub.Channel()), logapi.Bool("cleanup", cleanup), logapi.Bool("usage", tallyUsage))
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "retry delete_failed events")
	cmd.Flags().BoolVar(&tallyUsage, "usage", false, "count uploads, bytes and deletions per owner in Redis")
	cmd.Flags().DurationVar(&flushEvery, "usage-flush", 10*time.Second, "how often usage counters are written")
	return cmd
}
