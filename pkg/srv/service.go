package srv

import (
	"context"
	"errors"
	"time"

	"github.com/sandevgo/tusknet/pkg/log"
)

// ErrExited is returned by a long-running service that stopped on its own,
// for example when the MCP client closed stdin.
var ErrExited = errors.New("service exited")

type Service interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// StartServices launches every service in its own goroutine. Any service
// returning an error from Start ends the process context through stop.
func StartServices(ctx context.Context, stop context.CancelFunc, services []Service) {
	logger := log.FromCtx(ctx)
	for _, service := range services {
		go func(service Service) {
			err := service.Start(ctx)
			switch {
			case err == nil:
				return
			case errors.Is(err, ErrExited):
				logger.Info().Msgf("%T exited", service)
			default:
				logger.Error().Err(err).Msgf("%T failed", service)
			}
			stop()
		}(service)
	}
}

// ShutdownServices waits for ctx to end, then shuts services down in reverse
// start order, bounded by timeout.
func ShutdownServices(ctx context.Context, timeout time.Duration, services []Service) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Shutdown(shutdownCtx); err != nil {
			log.FromCtx(ctx).Error().Err(err).Msgf("%T failed to shutdown", services[i])
		}
	}
}
