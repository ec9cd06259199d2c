package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fwojciec/dentdir"
	dentdirhttp "github.com/fwojciec/dentdir/http"
	"golang.org/x/sync/errgroup"
)

// Run executes the serve command.
func (c *ServeCmd) Run(deps *Dependencies) error {
	addr := c.Addr
	if addr == "" && deps.Config != nil {
		addr = deps.Config.Server.Addr
	}

	server := dentdirhttp.NewServer(deps.Clinics, deps.Credentials, deps.Ingester, deps.Logger)
	if deps.Now != nil {
		server.Now = deps.Now
	}

	ctx, cancel := context.WithCancel(deps.Ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, addr)
	})
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
		return err
	}
	return nil
}
