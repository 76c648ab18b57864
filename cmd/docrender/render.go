package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/smallbiznis/docrender/internal/cache"
	"github.com/smallbiznis/docrender/internal/config"
	"github.com/smallbiznis/docrender/internal/document"
	"github.com/smallbiznis/docrender/internal/document/domain"
	"github.com/smallbiznis/docrender/internal/media"
	"github.com/smallbiznis/docrender/internal/observability"
	"github.com/smallbiznis/docrender/internal/observability/logger"
	"github.com/smallbiznis/docrender/internal/source"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var renderOpts struct {
	input   string
	orderID int64
	variant string
	timeout time.Duration
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Build one document and print its reference as JSON",
	Example: `  # Invoice original and copy from a JSON request
  docrender render invoice --input order-42.json

  # Only the copy, reading the request from stdin
  cat order-42.json | docrender render invoice --input - --variant copy

  # Warranty card for an order stored in the database
  docrender render warranty --order 42`,
}

var renderInvoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Build an invoice (original, copy or both)",
	Args:  cobra.NoArgs,
	RunE:  runRenderInvoice,
}

var renderWarrantyCmd = &cobra.Command{
	Use:   "warranty",
	Short: "Build a warranty card",
	Args:  cobra.NoArgs,
	RunE:  runRenderWarranty,
}

func init() {
	renderCmd.PersistentFlags().StringVarP(&renderOpts.input, "input", "i", "", "JSON request file, - for stdin")
	renderCmd.PersistentFlags().Int64Var(&renderOpts.orderID, "order", 0, "load the request for this order from the database")
	renderCmd.PersistentFlags().DurationVar(&renderOpts.timeout, "timeout", 2*time.Minute, "build timeout")
	renderInvoiceCmd.Flags().StringVar(&renderOpts.variant, "variant", "both", "original, copy or both")

	renderCmd.AddCommand(renderInvoiceCmd, renderWarrantyCmd)
}

// renderDeps is filled by the fx graph of a one-shot render.
type renderDeps struct {
	docs   domain.Service
	orders *source.Store
}

func withRenderApp(ctx context.Context, fn func(context.Context, renderDeps) error) error {
	var deps renderDeps
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		// stdout carries the command result
		fx.Decorate(func(cfg logger.Config) logger.Config {
			cfg.OutputPath = "stderr"
			return cfg
		}),
		cache.Module,
		media.Module,
		source.Module,
		document.Module,
		fx.Populate(&deps.docs, &deps.orders),
	)
	if err := app.Err(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, renderOpts.timeout)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}
	runErr := fn(ctx, deps)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	return errors.Join(runErr, app.Stop(stopCtx))
}

func runRenderInvoice(cmd *cobra.Command, _ []string) error {
	variants, err := parseVariantFlag(renderOpts.variant)
	if err != nil {
		return err
	}
	return withRenderApp(cmd.Context(), func(ctx context.Context, deps renderDeps) error {
		var req domain.InvoiceRequest
		if renderOpts.orderID > 0 {
			req, err = deps.orders.LoadInvoiceRequest(ctx, renderOpts.orderID)
		} else {
			err = readRequest(cmd.InOrStdin(), &req)
		}
		if err != nil {
			return err
		}

		set, err := deps.docs.GenerateInvoiceSet(ctx, req, variants)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), set)
	})
}

func runRenderWarranty(cmd *cobra.Command, _ []string) error {
	return withRenderApp(cmd.Context(), func(ctx context.Context, deps renderDeps) error {
		var (
			req domain.WarrantyRequest
			err error
		)
		if renderOpts.orderID > 0 {
			req, err = deps.orders.LoadWarrantyRequest(ctx, renderOpts.orderID)
		} else {
			err = readRequest(cmd.InOrStdin(), &req)
		}
		if err != nil {
			return err
		}

		doc, err := deps.docs.GenerateWarranty(ctx, req)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), doc)
	})
}

func parseVariantFlag(value string) (domain.InvoiceVariants, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "both":
		return domain.InvoiceVariants{Original: true, Copy: true}, nil
	case "original":
		return domain.InvoiceVariants{Original: true}, nil
	case "copy":
		return domain.InvoiceVariants{Copy: true}, nil
	default:
		return domain.InvoiceVariants{}, fmt.Errorf("unknown variant %q", value)
	}
}

func readRequest(stdin io.Reader, dst any) error {
	var r io.Reader
	switch renderOpts.input {
	case "":
		return errors.New("either --input or --order is required")
	case "-":
		r = stdin
	default:
		f, err := os.Open(renderOpts.input)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		if domain.Code(err) != "" {
			return err
		}
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
