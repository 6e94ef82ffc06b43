package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/jrsteele09/carpool-client/app"
	"github.com/jrsteele09/carpool-client/internal/config"
	"github.com/jrsteele09/carpool-client/push"
	"github.com/jrsteele09/carpool-client/server"
	"github.com/jrsteele09/carpool-client/worker"
	"github.com/jrsteele09/carpool-client/worker/cache"
)

// runWorker serves the app origin through the in-process worker host and
// keeps a headless app instance attached to it, so worker updates drive
// the reload lifecycle.
func runWorker(c config.Config, args []string) error {
	var cr credentials
	flags := pflag.NewFlagSet("worker", pflag.ContinueOnError)
	listen := flags.String("listen", c.GetWorkerListen(), "address the worker host listens on")
	cr.addFlags(flags)
	if err := parseFlags(flags, args); err != nil {
		return err
	}

	displayAppname(c.GetAppName())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage, err := cache.Open(ctx, c.GetCacheRedisURL())
	if err != nil {
		return err
	}
	if closer, ok := storage.(io.Closer); ok {
		defer closer.Close()
	}

	host, err := worker.NewHost(c.GetBaseURL(), storage, c)
	if err != nil {
		return err
	}
	defer host.Wait()

	notifier := push.NewLogNotifier()
	pushHandler, err := push.NewHandler(c.GetBaseURL(), notifier, push.NewWindowRegistry(c.GetBaseURL()), c)
	if err != nil {
		return err
	}
	log.Info().
		Str("project", c.GetPushProjectID()).
		Str("sender", c.GetPushSenderID()).
		Msg("push messaging configured")

	handler, err := server.New(c, host, pushHandler, notifier)
	if err != nil {
		return err
	}
	httpServer := &http.Server{Addr: *listen, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := listenAndServe(httpServer); err != nil {
			log.Err(err).Msg("worker host stopped")
		}
	}()

	a, err := startApp(ctx, c, app.WithContainer(host))
	if err != nil {
		return err
	}
	defer a.Close()
	if err := cr.login(ctx, a); err != nil {
		log.Err(err).Msg("login failed")
	}

	waitForStopSignal()
	return shutdown(httpServer)
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Worker host listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
