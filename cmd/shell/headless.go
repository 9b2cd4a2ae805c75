package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/config"
	"github.com/wippyai/wasm-bridge/event"
)

type headlessOptions struct {
	out      io.Writer
	send     []string
	duration time.Duration
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	var send []string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run headless, printing inbound events as JSON lines",
		Example: "  shell run -m scene.wasm --send '{\"DebugRayMarch\":\"Normals\"}' --send '\"Trigger\"'",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeadless(cmd.Context(), *cfg, headlessOptions{
				out:      cmd.OutOrStdout(),
				send:     send,
				duration: duration,
			})
		},
	}
	cmd.Flags().StringArrayVarP(&send, "send", "s", nil, "Event to enqueue once ready, as JSON (repeatable)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	return cmd
}

func runHeadless(ctx context.Context, cfg config.Config, opts headlessOptions) error {
	outbound := make([]event.Event, 0, len(opts.send))
	for _, raw := range opts.send {
		ev, err := event.Decode([]byte(raw))
		if err != nil {
			return fmt.Errorf("--send %s: %w", raw, err)
		}
		outbound = append(outbound, ev)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr)
		defer srv.Close()
	}

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	b, err := s.frame.Ready(ctx)
	if err != nil {
		return fmt.Errorf("bridge init: %w", err)
	}
	log.Info("bridge ready", zap.String("instance", s.frame.ID()))

	var mu sync.Mutex
	unsubscribe := b.SubscribeInbound(func(ev event.Event) {
		data, err := event.Encode(ev)
		if err != nil {
			log.Warn("unprintable inbound event", zap.Error(err))
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(opts.out, string(data))
	})
	defer unsubscribe()

	for _, ev := range outbound {
		if err := b.EnqueueOutbound(ev); err != nil {
			return err
		}
	}

	<-ctx.Done()
	return nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics endpoint failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return srv
}
