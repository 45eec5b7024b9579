package navigation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-navi/pkg/location"
	"github.com/lintang-b-s/navigatorx-navi/pkg/routing"
	"go.uber.org/zap"
)

const (
	defaultQueueSize      = 64
	defaultRerouteTimeout = 30 * time.Second
)

type EngineConfig struct {
	QueueSize      int
	RerouteTimeout time.Duration
	// RealSource is watched when navigation starts with real gps, FakeSource with fake gps.
	RealSource location.Source
	FakeSource location.Source
}

// Engine owns a Navigator and runs every transition on one goroutine, fed by a queue of events.
// All exported methods are safe for concurrent use.
type Engine struct {
	nav    *Navigator
	router routing.Router
	cfg    EngineConfig
	log    *zap.Logger

	queue chan func()
	ctx   context.Context
	done  chan struct{}

	// loop goroutine only
	cancelSource context.CancelFunc

	subsMu  sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

func NewEngine(router routing.Router, speaker Speaker, cfg EngineConfig, log *zap.Logger) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.RerouteTimeout <= 0 {
		cfg.RerouteTimeout = defaultRerouteTimeout
	}
	e := &Engine{
		router: router,
		cfg:    cfg,
		log:    log,
		queue:  make(chan func(), cfg.QueueSize),
		ctx:    context.Background(),
		done:   make(chan struct{}),
		subs:   make(map[int]chan Snapshot),
	}
	e.nav = NewNavigator(e, speaker, log)
	return e
}

// SetSpeaker replaces the announcement speaker. Call it before Run.
func (e *Engine) SetSpeaker(speaker Speaker) {
	e.nav.speaker = speaker
}

// Run processes queued events until ctx is done. Call it once.
func (e *Engine) Run(ctx context.Context) error {
	e.ctx = ctx
	defer close(e.done)
	defer e.stopSource()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-e.queue:
			event()
			e.publish()
		}
	}
}

// post queues event without waiting for it to run. Events posted after Run returned are dropped.
func (e *Engine) post(event func()) bool {
	select {
	case e.queue <- event:
		return true
	case <-e.done:
		return false
	}
}

// do runs fn on the loop and waits for its result.
func (e *Engine) do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	select {
	case e.queue <- func() { result <- fn() }:
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reroute runs the routing request on its own goroutine and queues the result.
func (e *Engine) Reroute(seq uint64, req routing.Request) {
	go func() {
		ctx, cancel := context.WithTimeout(e.ctx, e.cfg.RerouteTimeout)
		defer cancel()
		paths, err := e.router.Route(ctx, req)
		e.post(func() { e.nav.OnRerouted(seq, paths, err) })
	}()
}

// Plan routes through points and selects the first path for the next Start. All candidate paths
// are returned.
func (e *Engine) Plan(ctx context.Context, req routing.Request) ([]*datastructure.Path, error) {
	if err := req.CustomModel.Validate(); err != nil {
		return nil, err
	}
	paths, err := e.router.Route(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrNoRoute
	}
	err = e.do(ctx, func() error {
		return e.nav.Select(paths[0], req.Profile, req.CustomModel)
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func (e *Engine) Start(ctx context.Context, useFakeGPS, fullscreen bool) error {
	return e.do(ctx, func() error {
		if err := e.nav.Start(useFakeGPS, fullscreen); err != nil {
			return err
		}
		src := e.cfg.RealSource
		if useFakeGPS {
			src = e.cfg.FakeSource
		}
		e.startSource(src)
		return nil
	})
}

func (e *Engine) Stop(ctx context.Context) error {
	return e.do(ctx, func() error {
		e.stopSource()
		e.nav.Stop()
		return nil
	})
}

func (e *Engine) UpdateSettings(ctx context.Context, update SettingsUpdate) error {
	return e.do(ctx, func() error {
		return e.nav.UpdateSettings(update)
	})
}

func (e *Engine) DismissNotification(ctx context.Context) error {
	return e.do(ctx, func() error {
		e.nav.DismissNotification()
		return nil
	})
}

func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := e.do(ctx, func() error {
		snap = e.nav.State().Snapshot()
		return nil
	})
	return snap, err
}

func (e *Engine) onFix(fix datastructure.Fix) {
	err := e.nav.OnLocation(fix)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvariant), errors.Is(err, ErrNoPath):
		// already logged at error level by the navigator
	default:
		e.log.Debug("fix rejected", zap.Error(err))
	}
}

func (e *Engine) startSource(src location.Source) {
	e.stopSource()
	if src == nil {
		e.log.Warn("no location source configured")
		return
	}
	ctx, cancel := context.WithCancel(e.ctx)
	e.cancelSource = cancel

	onFix := func(fix datastructure.Fix) {
		e.post(func() {
			if ctx.Err() != nil {
				return
			}
			e.onFix(fix)
		})
	}
	onError := func(err error) {
		e.post(func() {
			if ctx.Err() != nil {
				return
			}
			e.nav.OnLocationError(err)
		})
	}
	go func() {
		if err := src.Watch(ctx, onFix, onError); err != nil {
			e.log.Warn("location source stopped", zap.Error(err))
		}
	}()
}

func (e *Engine) stopSource() {
	if e.cancelSource != nil {
		e.cancelSource()
		e.cancelSource = nil
	}
}

// Subscribe returns a channel receiving the latest snapshot after every event. Slow subscribers
// only miss intermediate snapshots. Call the returned func to unsubscribe.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	e.subsMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.subsMu.Unlock()

	return ch, func() {
		e.subsMu.Lock()
		delete(e.subs, id)
		e.subsMu.Unlock()
	}
}

func (e *Engine) publish() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	if len(e.subs) == 0 {
		return
	}
	snap := e.nav.State().Snapshot()
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
