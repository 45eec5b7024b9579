package main

import (
	"context"
	"flag"
	"time"

	"github.com/lintang-b-s/navigatorx-navi/pkg/concurrent"
	"github.com/lintang-b-s/navigatorx-navi/pkg/geo"
	"github.com/lintang-b-s/navigatorx-navi/pkg/http"
	"github.com/lintang-b-s/navigatorx-navi/pkg/http/router/controllers"
	"github.com/lintang-b-s/navigatorx-navi/pkg/http/usecases"
	"github.com/lintang-b-s/navigatorx-navi/pkg/location"
	"github.com/lintang-b-s/navigatorx-navi/pkg/logger"
	"github.com/lintang-b-s/navigatorx-navi/pkg/navigation"
	"github.com/lintang-b-s/navigatorx-navi/pkg/routing"
	"github.com/lintang-b-s/navigatorx-navi/pkg/speech"
	"github.com/lintang-b-s/navigatorx-navi/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	useRateLimit = flag.Bool("rate_limit", false, "limit api requests per client ip")
	nmeaDevice   = flag.String("nmea_device", "", "read real gps fixes from this NMEA 0183 device instead of the browser (e.g. /dev/ttyUSB0)")
	replaySeed   = flag.Uint64("replay_seed", uint64(time.Now().UnixNano()), "seed of the fake gps jitter")
)

func setDefaults() {
	viper.SetDefault("ROUTING_BASE_URL", "http://localhost:8989")
	viper.SetDefault("ROUTING_KEY", "")
	viper.SetDefault("ROUTING_LOCALE", "en")
	viper.SetDefault("ROUTING_TIMEOUT", "15s")
	viper.SetDefault("ROUTING_RATE_LIMIT", 5)
	viper.SetDefault("ROUTING_BURST", 5)
	viper.SetDefault("ROUTING_CACHE_SIZE", 128)

	viper.SetDefault("FIX_TIMEOUT", location.DefaultFixTimeout)

	// demonstration route of the fake gps replay
	viper.SetDefault("DEMO_FROM_LAT", -7.7829)
	viper.SetDefault("DEMO_FROM_LON", 110.3671)
	viper.SetDefault("DEMO_TO_LAT", -7.7956)
	viper.SetDefault("DEMO_TO_LON", 110.3695)
	viper.SetDefault("DEMO_PROFILE", "car")
	viper.SetDefault("DEMO_INTERVAL", location.DefaultReplayInterval)
	viper.SetDefault("DEMO_JITTER_METER", 3.0)

	viper.SetDefault("SPEECH_URL", "")
	viper.SetDefault("SPEECH_LANG", "en")
	viper.SetDefault("SPEECH_TIMEOUT", "10s")
}

func main() {
	flag.Parse()
	setDefaults()
	if err := util.ReadConfig(); err != nil {
		panic(err)
	}
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	client := routing.NewClient(routing.Config{
		BaseURL:   viper.GetString("ROUTING_BASE_URL"),
		Key:       viper.GetString("ROUTING_KEY"),
		Locale:    viper.GetString("ROUTING_LOCALE"),
		Timeout:   viper.GetDuration("ROUTING_TIMEOUT"),
		RateLimit: viper.GetFloat64("ROUTING_RATE_LIMIT"),
		Burst:     viper.GetInt("ROUTING_BURST"),
	}, logger)
	router, err := routing.NewCachedClient(client, viper.GetInt("ROUTING_CACHE_SIZE"), logger)
	if err != nil {
		panic(err)
	}

	feed := location.NewFeed()
	var realSource location.Source = feed
	if *nmeaDevice != "" {
		realSource = location.NewNMEADevice(*nmeaDevice, logger)
	}
	realSource = location.WithFixTimeout(realSource, viper.GetDuration("FIX_TIMEOUT"))

	fakeSource := location.NewReplay(router, location.ReplayConfig{
		From:     geo.NewCoordinate(viper.GetFloat64("DEMO_FROM_LAT"), viper.GetFloat64("DEMO_FROM_LON")),
		To:       geo.NewCoordinate(viper.GetFloat64("DEMO_TO_LAT"), viper.GetFloat64("DEMO_TO_LON")),
		Profile:  viper.GetString("DEMO_PROFILE"),
		Interval: viper.GetDuration("DEMO_INTERVAL"),
	}, location.NewRandomJitter(*replaySeed, viper.GetFloat64("DEMO_JITTER_METER")), logger)

	// announcements are spoken by the browsers through the hub, and by a tts backend if configured
	synthesizers := speech.Multi{speech.NewLogSynthesizer(logger)}
	if url := viper.GetString("SPEECH_URL"); url != "" {
		synthesizers = append(synthesizers, speech.NewHTTPSynthesizer(url, viper.GetString("SPEECH_LANG"),
			viper.GetDuration("SPEECH_TIMEOUT")))
	}
	speechPool := concurrent.NewWorkerPool(1, 8)
	defer speechPool.Close()

	engine := navigation.NewEngine(router, nil, navigation.EngineConfig{
		RealSource: realSource,
		FakeSource: fakeSource,
	}, logger)
	navigationService := usecases.NewNavigationService(logger, engine, feed)
	hub := controllers.NewHub(navigationService, logger)
	synthesizers = append(synthesizers, hub)
	engine.SetSpeaker(speech.NewQueue(synthesizers, speechPool, viper.GetDuration("SPEECH_TIMEOUT"), logger))

	ctx, cleanup, err := NewContext()
	if err != nil {
		panic(err)
	}

	go func() {
		if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("navigation engine stopped", zap.Error(err))
		}
	}()

	api := http.NewServer(logger)
	if _, err := api.Use(ctx, logger, *useRateLimit, navigationService, hub); err != nil {
		panic(err)
	}

	signal := http.GracefulShutdown()

	logger.Info("Navigatorx Navi Server Stopped", zap.String("signal", signal.String()))
	cleanup()
	if err := api.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
}

func NewContext() (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	cb := func() {
		cancel()
	}

	return ctx, cb, nil
}
