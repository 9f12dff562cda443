// Package server exposes C4 identification over HTTP: uploaded bodies,
// files under a served root, and ID validation.
package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"c4/pkg/c4"
	"c4/pkg/log"
)

const (
	shutdownTimeout = 10
	// DefaultCacheSize is the number of file IDs kept when no size is given.
	DefaultCacheSize = 4096
)

// IDServer answers identification requests for files under root.
type IDServer struct {
	root     string
	echo     *echo.Echo
	version  string
	digester c4.Digester
	workers  int
	cache    *lru.Cache
	started  time.Time
}

// NewIDServer creates a server for the tree at root. Non-positive cacheSize
// falls back to DefaultCacheSize; workers bounds hashing for /tree.
func NewIDServer(root, version string, digester c4.Digester, cacheSize, workers int) (*IDServer, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}

	return &IDServer{
		root:     abs,
		echo:     echo.New(),
		version:  version,
		digester: digester,
		workers:  workers,
		cache:    cache,
		started:  time.Now(),
	}, nil
}

// Start serves on addr until ctx is done, then shuts down gracefully.
func (srv *IDServer) Start(ctx context.Context, addr string) error {
	srv.setupRoutes()

	failed := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("root", srv.root).
			Str("version", srv.version).
			Msg("Starting C4 ID server")

		if err := srv.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server startup failed")
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		return err
	case <-ctx.Done():
	}

	return srv.Shutdown()
}

func (srv *IDServer) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout*time.Second)
	defer cancel()

	if err := srv.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	log.Info().Msg("Server gracefully stopped")
	return nil
}

func (srv *IDServer) setupRoutes() {
	srv.echo.HideBanner = true
	srv.echo.HidePort = true
	srv.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	srv.echo.Use(middleware.Recover())

	srv.echo.GET("/status", srv.getStatus)
	srv.echo.POST("/id", srv.identifyUpload)
	srv.echo.GET("/id/:id/validate", srv.validateID)
	srv.echo.GET("/tree", srv.identifyTree)
	srv.echo.GET("/file/*", srv.identifyFile)
}
