package location

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-navi/pkg/geo"
	"github.com/lintang-b-s/navigatorx-navi/pkg/routing"
	"go.uber.org/zap"
)

// DefaultReplayInterval between two replayed fixes
const DefaultReplayInterval = 3000 * time.Millisecond

// Jitter perturbs a replayed point to simulate fix noise.
type Jitter interface {
	Perturb(c geo.Coordinate) geo.Coordinate
}

type NoJitter struct{}

func (NoJitter) Perturb(c geo.Coordinate) geo.Coordinate {
	return c
}

// RandomJitter moves a point up to maxMeter north and east.
type RandomJitter struct {
	rnd      *rand.Rand
	maxMeter float64
}

func NewRandomJitter(seed uint64, maxMeter float64) *RandomJitter {
	return &RandomJitter{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), maxMeter: maxMeter}
}

func (j *RandomJitter) Perturb(c geo.Coordinate) geo.Coordinate {
	north := (j.rnd.Float64()*2 - 1) * j.maxMeter
	east := (j.rnd.Float64()*2 - 1) * j.maxMeter
	return geo.Offset(c, north, east)
}

type ReplayConfig struct {
	From     geo.Coordinate
	To       geo.Coordinate
	Profile  string
	Interval time.Duration
}

// Replay. fake location source: routes once between two demonstration coordinates and replays
// the jittered path points cyclically, one per interval.
type Replay struct {
	router routing.Router
	cfg    ReplayConfig
	jitter Jitter
	log    *zap.Logger
}

func NewReplay(router routing.Router, cfg ReplayConfig, jitter Jitter, log *zap.Logger) *Replay {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultReplayInterval
	}
	if jitter == nil {
		jitter = NoJitter{}
	}
	return &Replay{router: router, cfg: cfg, jitter: jitter, log: log}
}

func (r *Replay) Watch(ctx context.Context, onFix func(datastructure.Fix), onError func(error)) error {
	paths, err := r.router.Route(ctx, routing.NewRequest(r.cfg.Profile, nil, r.cfg.From, r.cfg.To))
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		onError(err)
		return err
	}
	if len(paths) == 0 || len(paths[0].GetPoints()) == 0 {
		onError(ErrNoDemoPath)
		return ErrNoDemoPath
	}

	fixes := ReplayFixes(paths[0].GetPoints(), r.jitter, r.cfg.Interval)
	r.log.Info("replaying fake location",
		zap.Int("fixes", len(fixes)),
		zap.Duration("interval", r.cfg.Interval))

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for i := 0; ; i = (i + 1) % len(fixes) {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			onFix(fixes[i].WithTime(now))
		}
	}
}

// ReplayFixes. one fix per point, heading is the bearing to the next point (the last point keeps
// the previous heading) and speed the distance to it over interval.
func ReplayFixes(points []geo.Coordinate, jitter Jitter, interval time.Duration) []datastructure.Fix {
	jittered := make([]geo.Coordinate, len(points))
	for i, p := range points {
		jittered[i] = jitter.Perturb(p)
	}

	fixes := make([]datastructure.Fix, len(jittered))
	heading, speed := 0.0, 0.0
	for i, p := range jittered {
		if i+1 < len(jittered) {
			heading = geo.Bearing(p, jittered[i+1])
			speed = geo.Distance(p, jittered[i+1]) / interval.Seconds()
		}
		fixes[i] = datastructure.NewFix(p.Lat, p.Lon, heading, speed, time.Time{})
	}
	return fixes
}
