package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"glass-notify/src/config"
	"glass-notify/src/singleinstance"
)

type stressOptions struct {
	n           int
	concurrency int
	mode        string
	deadline    time.Duration
}

type counts struct {
	ok, absent, rejected, failed int32
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-notify",
		Short:         "Stress test --notify delegation to the resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return runWithOptions(cmd.Context(), *opts, singleinstance.NewClient(cfg.ResidentPorts()), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of requests to send")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 10, "requests in flight at once")
	cmd.Flags().StringVar(&opts.mode, "mode", "notify", "notify|dismiss|mixed")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-request timeout")

	return cmd
}

func request(mode string, i int) singleinstance.Request {
	if mode == "dismiss" || (mode == "mixed" && i%2 == 1) {
		return singleinstance.Request{Command: singleinstance.Dismiss}
	}
	return singleinstance.Request{Command: singleinstance.Notify, Text: fmt.Sprintf("stress %d %s", i, uuid.NewString())}
}

func runWithOptions(ctx context.Context, opts stressOptions, client singleinstance.Client, out io.Writer) error {
	switch opts.mode {
	case "notify", "dismiss", "mixed":
	default:
		return fmt.Errorf("unknown mode %q", opts.mode)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var c counts
	g, gctx := errgroup.WithContext(ctx)
	if opts.concurrency > 0 {
		g.SetLimit(opts.concurrency)
	}

	start := time.Now()
	for i := 0; i < opts.n; i++ {
		req := request(opts.mode, i)
		g.Go(func() error {
			reqCtx, cancel := context.WithTimeout(gctx, opts.deadline)
			defer cancel()
			delegated, err := client.TrySend(reqCtx, req)
			var rejected *singleinstance.RejectedError
			switch {
			case errors.As(err, &rejected):
				atomic.AddInt32(&c.rejected, 1)
			case err != nil:
				atomic.AddInt32(&c.failed, 1)
			case delegated:
				atomic.AddInt32(&c.ok, 1)
			default:
				atomic.AddInt32(&c.absent, 1)
			}
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)
	fmt.Fprintf(out, "sent=%d ok=%d absent=%d rejected=%d err=%d elapsed=%s\n",
		opts.n, c.ok, c.absent, c.rejected, c.failed, elapsed)
	return nil
}
