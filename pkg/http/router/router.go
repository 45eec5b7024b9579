package router

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lintang-b-s/navigatorx-navi/pkg/concurrent"
	"github.com/lintang-b-s/navigatorx-navi/pkg/http/router/controllers"
	router_helper "github.com/lintang-b-s/navigatorx-navi/pkg/http/router/routerhelper"
	http_server "github.com/lintang-b-s/navigatorx-navi/pkg/http/server"
	"github.com/mailru/easygo/netpoll"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/rs/cors"
	"go.uber.org/zap"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "net/http/pprof"
)

type API struct {
	log     *zap.Logger
	hub     *controllers.Hub
	poller  netpoll.Poller
	pool    *concurrent.WorkerPool
	limiter *ipRateLimiter
}

func NewAPI(log *zap.Logger, hub *controllers.Hub) *API {
	viper.SetDefault("API_RATE_LIMIT", 10)
	viper.SetDefault("API_RATE_BURST", 20)
	return &API{
		log: log,
		hub: hub,
		limiter: newIPRateLimiter(rate.Limit(viper.GetFloat64("API_RATE_LIMIT")),
			viper.GetInt("API_RATE_BURST"), 3*time.Minute),
	}
}

//	@title			Navigatorx Navi API
//	@version		1.0
//	@description	Turn-by-turn navigation on top of a GraphHopper compatible routing backend.

//	@contact.name	Lintang Birda Saputra
//	@contact.url	_
//	@contact.email	lintang.birda.saputra@mail.ugm.ac.id

//	@license.name	BSD License
//	@license.url	https://opensource.org/license/bsd-2-clause

// @host		localhost
// @BasePath	/api
func (api *API) Run(
	ctx context.Context,
	config http_server.Config,
	log *zap.Logger,

	useRateLimit bool,
	navigationService controllers.NavigationService,
) error {
	log.Info("Run httprouter API")

	router := httprouter.New()

	corsHandler := cors.New(cors.Options{ //nolint:gocritic // ignore
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, //nolint:mnd // ignore

	})

	router.GET("/doc/*any", swaggerHandler)

	router.Handler(http.MethodGet, "/debug/pprof/*item", http.DefaultServeMux)

	group := router_helper.NewRouteGroup(router, "/api")

	navigatorRoutes := controllers.New(navigationService, log)

	navigatorRoutes.Routes(group)

	var (
		errChan      = make(chan error, 1)
		errProxyChan = make(chan error, 1)
	)

	go api.hub.Run(ctx)

	go api.handleWebsocket(ctx, config, errChan)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", api.upstream("navigation websocket", "tcp", "localhost"+":"+strconv.Itoa(config.WebsocketPort)))
	wsServer := http_server.New(ctx, mux, config, config.ProxyPort)

	go func() {
		api.log.Info(fmt.Sprintf("WebSocket proxy running on port %d", config.ProxyPort))
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errProxyChan <- err
		}
	}()

	mwChain := []alice.Constructor{corsHandler.Handler, EnforceJSONHandler, api.recoverPanic,
		RealIP, Heartbeat("healthz"), Logger(log), Labels}
	if useRateLimit {
		mwChain = append(mwChain, api.Limit)
	}
	var handler http.Handler = router
	if config.Timeout > 0 {
		handler = http.TimeoutHandler(router, config.Timeout, "request timed out")
	}
	mainMwChain := alice.New(mwChain...).Then(handler)

	srv := http_server.New(ctx, mainMwChain, config, config.Port)
	log.Info(fmt.Sprintf("API run on port %d", config.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = wsServer.Shutdown(shutdownCtx)
	}

	select {
	case err := <-errChan:
		log.Error("Websocket error, shutting down server", zap.Error(err))
		shutdown()
		return err
	case err := <-errProxyChan:
		log.Error("Websocket proxy error, shutting down server", zap.Error(err))
		shutdown()
		return err
	case err := <-serverErr:
		log.Info("HTTP server stopped", zap.Error(err))
		shutdown()
		return err

	case <-ctx.Done():
		log.Info("Context canceled, shutting down server")
		shutdown()
		return ctx.Err()
	}
}

func swaggerHandler(res http.ResponseWriter, req *http.Request, p httprouter.Params) {
	httpSwagger.WrapHandler(res, req)
}
