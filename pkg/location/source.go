// Package location produces position fixes for the navigation engine.
package location

import (
	"context"
	"sync"
	"time"

	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-navi/pkg/util"
)

// DefaultFixTimeout. maximum wait for a device fix before reporting an error
const DefaultFixTimeout = 300 * time.Second

var (
	ErrFixTimeout = util.WrapErrorf(nil, util.ErrUnavailable, "no location fix received in time")
	ErrNoDemoPath = util.WrapErrorf(nil, util.ErrNotFound, "routing backend returned no path for the fake location replay")
)

// Source. unbounded asynchronous stream of fixes. Watch blocks until ctx is done or the source
// fails, onFix and onError may be called from any goroutine.
type Source interface {
	Watch(ctx context.Context, onFix func(datastructure.Fix), onError func(error)) error
}

// Feed. Source fed from outside, by WebSocket frames or HTTP requests carrying browser
// geolocation. Only the latest Watch receives pushed fixes.
type Feed struct {
	mu      sync.Mutex
	gen     uint64
	onFix   func(datastructure.Fix)
	onError func(error)
}

func NewFeed() *Feed {
	return &Feed{}
}

func (f *Feed) Watch(ctx context.Context, onFix func(datastructure.Fix), onError func(error)) error {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	f.onFix, f.onError = onFix, onError
	f.mu.Unlock()

	<-ctx.Done()

	f.mu.Lock()
	if f.gen == gen {
		f.onFix, f.onError = nil, nil
	}
	f.mu.Unlock()
	return nil
}

// Push delivers fix to the active watcher, false when nobody watches.
func (f *Feed) Push(fix datastructure.Fix) bool {
	f.mu.Lock()
	onFix := f.onFix
	f.mu.Unlock()
	if onFix == nil {
		return false
	}
	onFix(fix)
	return true
}

func (f *Feed) PushError(err error) bool {
	f.mu.Lock()
	onError := f.onError
	f.mu.Unlock()
	if onError == nil {
		return false
	}
	onError(err)
	return true
}

// Watching. a watcher is attached
func (f *Feed) Watching() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onFix != nil
}

type watchdog struct {
	src     Source
	timeout time.Duration
}

// WithFixTimeout reports ErrFixTimeout through onError every time src stays silent for timeout.
// The source keeps running.
func WithFixTimeout(src Source, timeout time.Duration) Source {
	if timeout <= 0 {
		timeout = DefaultFixTimeout
	}
	return &watchdog{src: src, timeout: timeout}
}

func (w *watchdog) Watch(ctx context.Context, onFix func(datastructure.Fix), onError func(error)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reset := make(chan struct{}, 1)
	go func() {
		t := time.NewTimer(w.timeout)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-reset:
				if !t.Stop() {
					select {
					case <-t.C:
					default:
					}
				}
				t.Reset(w.timeout)
			case <-t.C:
				onError(ErrFixTimeout)
				t.Reset(w.timeout)
			}
		}
	}()

	return w.src.Watch(ctx, func(fix datastructure.Fix) {
		select {
		case reset <- struct{}{}:
		default:
		}
		onFix(fix)
	}, onError)
}
