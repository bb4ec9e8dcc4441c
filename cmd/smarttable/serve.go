package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/poku-e/smarttable/internal/demo"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recipe catalog as a smart table",
		Long: `Serve a recipe CSV (input1_name, input2_name, input3_name, output_name,
output_qty) as a server-rendered smart table with search, extra filters,
sortable headers, pagination and page size links.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", a.v.GetString("serve.addr"))
			if err != nil {
				return err
			}
			return a.serve(ctx, ln, func(addr string) {
				fmt.Fprintf(cmd.OutOrStdout(), "listening on http://%s\n", addr)
			})
		},
	}
	flags := cmd.Flags()
	flags.String("csv", "", "recipe CSV file (required)")
	flags.String("addr", ":8080", "listen address")
	flags.Bool("watch", false, "reload the CSV when it changes")
	flags.Bool("partial", true, "mark the table as a replaceable region")
	for _, name := range []string{"csv", "addr", "watch", "partial"} {
		_ = a.v.BindPFlag("serve."+name, flags.Lookup(name))
	}
	return cmd
}

// serve runs the demo server on ln until ctx is done.
func (a *app) serve(ctx context.Context, ln net.Listener, ready func(addr string)) error {
	path := a.v.GetString("serve.csv")
	if path == "" {
		ln.Close()
		return errors.New("--csv is required")
	}
	catalog, err := demo.LoadCatalog(path)
	if err != nil {
		ln.Close()
		return err
	}

	handler := demo.NewServer(catalog, a.cfg,
		demo.WithServerLogger(a.logger),
		demo.WithPartial(a.v.GetBool("serve.partial")))
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if a.v.GetBool("serve.watch") {
		go func() {
			if err := catalog.Watch(ctx, a.logger, nil); err != nil {
				a.logger.Warn("catalog watch stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	a.logger.Info("serving catalog",
		zap.String("addr", ln.Addr().String()),
		zap.String("csv", path),
		zap.Int("recipes", catalog.Len()))
	if ready != nil {
		ready(ln.Addr().String())
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
