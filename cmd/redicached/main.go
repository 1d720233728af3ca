// Command redicached runs the single-threaded, in-memory key-value
// server: an epoll-driven reactor speaking the length-prefixed binary
// protocol, with an optional separate admin server exposing prometheus
// metrics and a JSON debug snapshot.
package main

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/rpcpool/redicache/internal/aclfile"
	"github.com/rpcpool/redicache/internal/metrics"
	"github.com/rpcpool/redicache/internal/reactor"
	"github.com/rpcpool/redicache/internal/store"
)

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()

	var (
		listenAddr     string
		metricsAddr    string
		aclPath        string
		getNullOnMiss  bool
		snapshotPeriod time.Duration
	)

	app := &cli.App{
		Name:  "redicached",
		Usage: "single-threaded in-memory key-value server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "listen",
				Value:       "127.0.0.1:6379",
				Usage:       "address the data-plane reactor listens on",
				Destination: &listenAddr,
			},
			&cli.StringFlag{
				Name:        "metrics-listen",
				Value:       "",
				Usage:       "address the admin server (metrics + debug info) listens on; empty disables it",
				Destination: &metricsAddr,
			},
			&cli.StringFlag{
				Name:        "acl-file",
				Value:       "",
				Usage:       "path to a hot-reloaded denylist of banned peer addresses; empty disables it",
				Destination: &aclPath,
			},
			&cli.BoolFlag{
				Name:        "get-null-on-miss",
				Value:       false,
				Usage:       "return a wire Null instead of the legacy \"not found\" string on a GET miss",
				Destination: &getNullOnMiss,
			},
			&cli.DurationFlag{
				Name:        "snapshot-interval",
				Value:       5 * time.Second,
				Usage:       "how often the debug/metrics snapshot refreshes",
				Destination: &snapshotPeriod,
			},
		},
		Action: func(cctx *cli.Context) error {
			return run(cctx.Context, listenAddr, metricsAddr, aclPath, getNullOnMiss, snapshotPeriod)
		},
	}
	sort.Sort(cli.FlagsByName(app.Flags))

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		klog.Info("redicached: received shutdown signal")
		cancel()
	}()

	if err := app.RunContext(ctx, os.Args); err != nil {
		klog.Fatalf("redicached: %v", err)
	}
}

func run(ctx context.Context, listenAddr, metricsAddr, aclPath string, getNullOnMiss bool, snapshotPeriod time.Duration) error {
	st := store.New()
	st.NullOnMiss = getNullOnMiss

	var acl *aclfile.Denylist
	if aclPath != "" {
		var err error
		acl, err = aclfile.Load(aclPath)
		if err != nil {
			return err
		}
		if err := acl.Watch(); err != nil {
			return err
		}
		defer acl.Close()
	}

	collectors := metrics.New()

	r, err := reactor.New(listenAddr, st, acl, collectors)
	if err != nil {
		return err
	}
	defer r.Close()
	klog.Infof("redicached: listening on %s", listenAddr)

	stop := make(chan struct{})
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		<-groupCtx.Done()
		close(stop)
		return nil
	})
	group.Go(func() error {
		return r.Run(stop)
	})

	if metricsAddr != "" {
		ticker := metrics.NewTicker(clock.New(), st, collectors, collectors.ConnectionsActiveValue)
		go ticker.Run(stop, snapshotPeriod)

		admin := &fasthttp.Server{
			Handler: metrics.NewServer(collectors, ticker).Handler(),
		}
		group.Go(func() error {
			klog.Infof("redicached: admin server listening on %s", metricsAddr)
			return admin.ListenAndServe(metricsAddr)
		})
		group.Go(func() error {
			<-groupCtx.Done()
			return admin.Shutdown()
		})
	}

	return group.Wait()
}
