package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"examseed/internal/fakeservice"
	"examseed/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var sandboxAddr string

// sandboxCmd serves an in-memory stand-in for the exam-management service
var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Serve an in-memory exam-management service for dry runs",
	Long: `Starts an in-memory service exposing the same creation and list endpoints
as the real one, including its unique-key "Duplicate entry" errors. Point
--base-url at it to rehearse a run without touching real data:

  examseed sandbox --addr 127.0.0.1:8080
  examseed seed --base-url http://127.0.0.1:8080`,
	Args: cobra.NoArgs,
	RunE: runSandbox,
}

func init() {
	sandboxCmd.Flags().StringVar(&sandboxAddr, "addr", "127.0.0.1:8080", "Listen address")
}

func runSandbox(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	ln, err := net.Listen("tcp", sandboxAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", sandboxAddr, err)
	}
	svc := fakeservice.New(logging.For(logger, logging.CategoryGateway))
	return serveSandbox(ctx, ln, svc, cmd)
}

// serveSandbox serves svc on ln until ctx ends, then prints the stored counts.
func serveSandbox(ctx context.Context, ln net.Listener, svc *fakeservice.Service, cmd *cobra.Command) error {
	srv := &http.Server{Handler: svc, ReadHeaderTimeout: 5 * time.Second}
	log := logging.For(logger, logging.CategoryBoot)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info("sandbox listening", zap.String("addr", ln.Addr().String()))
	fmt.Fprintf(cmd.OutOrStdout(), "Sandbox listening on http://%s (Ctrl+C to stop)\n", ln.Addr())

	if err := g.Wait(); err != nil {
		return fmt.Errorf("sandbox: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored: %s\n", strings.Join(svc.Summary(), " "))
	return nil
}
