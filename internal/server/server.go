package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"digistore/internal/config"
	"digistore/internal/metrics"
	"digistore/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// New は依存を組み立てたechoを返す（Listenはしない）
func New(cfg config.Config, deps Deps, log *zap.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	//末尾スラッシュはあってもなくても同じルート
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(metrics.Middleware())
	e.Use(echomw.BodyLimit("20M"))

	if err := registerRoutes(e, cfg, deps, log); err != nil {
		return nil, err
	}
	return e, nil
}

// ctx が終わったら graceful shutdown
func Run(ctx context.Context, e *echo.Echo, addr string, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}
