// Package main is the entry point for the spoofdir server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/CageChen/spoofdir/internal/config"
	"github.com/CageChen/spoofdir/internal/handler"
	"github.com/CageChen/spoofdir/internal/logging"
	"github.com/CageChen/spoofdir/internal/watcher"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/sync/errgroup"
)

var logger = logging.GetLogger()

func main() {
	if err := run(os.Args[1:]); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.LogLevel != "" {
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
	}

	if p := cfg.GetConfigFilePath(); p != "" {
		logger.Info("config file: %s", p)
	}
	search := handler.NewSearchPath(cfg)
	logger.Info("search path (%d base directories):", len(search.Roots()))
	for i, r := range search.Roots() {
		logger.Info("  [%d] %s", i, r.Dir)
	}

	var opts []handler.Option
	var hub *handler.WSHandler
	if cfg.Watch {
		hub = handler.NewWSHandler()
		opts = append(opts, handler.WithLiveReload(hub))
	}
	srv, err := handler.New(cfg, search, opts...)
	if err != nil {
		return err
	}

	if hub != nil {
		w, err := watcher.New(cfg, watcher.WithFilter(srv.Relevant))
		if err != nil {
			logger.Warn("failed to create file watcher: %v", err)
		} else {
			w.OnChange(hub.OnFileChange)
			if err := w.Start(); err != nil {
				logger.Warn("failed to start file watcher: %v", err)
			}
			defer func() { _ = w.Stop() }()
			logger.Info("file watcher enabled")
		}
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handler.RequestLogger())
	r.Use(handler.APICORS())
	srv.Register(r)

	var h http.Handler = r
	if cfg.Gzip {
		h = gzhttp.GzipHandler(h)
	}
	if cfg.Prefix != "/" {
		logger.Info("mounted at %s", cfg.Prefix)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info("server starting at: http://localhost:%d%s", cfg.Port, cfg.Prefix)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.Open {
		go openBrowser(fmt.Sprintf("http://localhost:%d%s", cfg.Port, cfg.Prefix))
	}

	return eg.Wait()
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		cmd = "open"
		args = []string{url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	_ = exec.Command(cmd, args...).Start()
}
