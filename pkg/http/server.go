package http

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	http_router "github.com/lintang-b-s/navigatorx-navi/pkg/http/router"
	"github.com/lintang-b-s/navigatorx-navi/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/navigatorx-navi/pkg/http/server"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Log *zap.Logger
	g   errgroup.Group
}

func NewServer(log *zap.Logger) *Server {
	return &Server{Log: log}
}

// Use starts the api, websocket and websocket proxy servers in the background. They stop when
// ctx is done, Wait returns their error.
func (s *Server) Use(
	ctx context.Context,
	log *zap.Logger,

	useRateLimit bool,
	navigationService controllers.NavigationService,
	hub *controllers.Hub,
) (*Server, error) {
	viper.SetDefault("API_PORT", 6060)
	viper.SetDefault("WEBSOCKET_PORT", 6666)
	viper.SetDefault("WEBSOCKET_PROXY_PORT", 6767)

	viper.SetDefault("API_TIMEOUT", "60s")

	config := http_server.Config{
		Port:          viper.GetInt("API_PORT"),
		WebsocketPort: viper.GetInt("WEBSOCKET_PORT"),
		ProxyPort:     viper.GetInt("WEBSOCKET_PROXY_PORT"),
		Timeout:       viper.GetDuration("API_TIMEOUT"),
	}

	server := http_router.NewAPI(log, hub)

	s.g.Go(func() error {
		err := server.Run(
			ctx, config, log,
			useRateLimit, navigationService,
		)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	return s, nil
}

func (s *Server) Wait() error {
	return s.g.Wait()
}

// GracefulShutdown blocks until the process receives SIGINT or SIGTERM.
func GracefulShutdown() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}
