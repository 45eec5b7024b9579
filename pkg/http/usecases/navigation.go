package usecases

import (
	"context"
	"errors"

	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-navi/pkg/navigation"
	"github.com/lintang-b-s/navigatorx-navi/pkg/routing"
	"github.com/lintang-b-s/navigatorx-navi/pkg/util"
	"go.uber.org/zap"
)

var ErrNotWatching = util.WrapErrorf(nil, util.ErrConflict, "no location watcher, start navigation with real gps first")

type NavigationEngine interface {
	Plan(ctx context.Context, req routing.Request) ([]*datastructure.Path, error)
	Start(ctx context.Context, useFakeGPS, fullscreen bool) error
	Stop(ctx context.Context) error
	UpdateSettings(ctx context.Context, update navigation.SettingsUpdate) error
	DismissNotification(ctx context.Context) error
	Snapshot(ctx context.Context) (navigation.Snapshot, error)
	Subscribe() (<-chan navigation.Snapshot, func())
}

// LocationFeed receives fixes pushed by browsers, see location.Feed.
type LocationFeed interface {
	Push(fix datastructure.Fix) bool
	PushError(err error) bool
}

type NavigationService struct {
	log    *zap.Logger
	engine NavigationEngine
	feed   LocationFeed
}

func NewNavigationService(log *zap.Logger, engine NavigationEngine, feed LocationFeed) *NavigationService {
	return &NavigationService{
		log:    log,
		engine: engine,
		feed:   feed,
	}
}

func (ns *NavigationService) Plan(ctx context.Context, req routing.Request) ([]*datastructure.Path, error) {
	paths, err := ns.engine.Plan(ctx, req)
	if err != nil {
		return nil, err
	}
	ns.log.Info("route planned", zap.String("profile", req.Profile),
		zap.Int("points", len(req.Points)), zap.Int("paths", len(paths)))
	return paths, nil
}

func (ns *NavigationService) Start(ctx context.Context, useFakeGPS, fullscreen bool) error {
	return ns.engine.Start(ctx, useFakeGPS, fullscreen)
}

func (ns *NavigationService) Stop(ctx context.Context) error {
	return ns.engine.Stop(ctx)
}

func (ns *NavigationService) UpdateSettings(ctx context.Context, update navigation.SettingsUpdate) error {
	return ns.engine.UpdateSettings(ctx, update)
}

func (ns *NavigationService) DismissNotification(ctx context.Context) error {
	return ns.engine.DismissNotification(ctx)
}

func (ns *NavigationService) State(ctx context.Context) (navigation.Snapshot, error) {
	return ns.engine.Snapshot(ctx)
}

func (ns *NavigationService) PushFix(fix datastructure.Fix) error {
	if !ns.feed.Push(fix) {
		return ErrNotWatching
	}
	return nil
}

// PushLocationError forwards a browser geolocation failure (permission denied, position
// unavailable, timeout).
func (ns *NavigationService) PushLocationError(msg string) error {
	if !ns.feed.PushError(util.WrapErrorf(errors.New(msg), util.ErrUnavailable, "device location failed")) {
		return ErrNotWatching
	}
	return nil
}

func (ns *NavigationService) Subscribe() (<-chan navigation.Snapshot, func()) {
	return ns.engine.Subscribe()
}
