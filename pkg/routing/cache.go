package routing

import (
	"context"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"go.uber.org/zap"
)

type Router interface {
	Route(ctx context.Context, req Request) ([]*datastructure.Path, error)
}

// CachedClient memoizes successful responses by request. Paths are immutable so cached slices
// are shared between callers.
type CachedClient struct {
	next  Router
	cache *lru.Cache[string, []*datastructure.Path]
	log   *zap.Logger
}

func NewCachedClient(next Router, size int, log *zap.Logger) (*CachedClient, error) {
	cache, err := lru.New[string, []*datastructure.Path](size)
	if err != nil {
		return nil, err
	}
	return &CachedClient{next: next, cache: cache, log: log}, nil
}

func (c *CachedClient) Route(ctx context.Context, req Request) ([]*datastructure.Path, error) {
	key, err := cacheKey(req)
	if err != nil {
		return c.next.Route(ctx, req)
	}
	if paths, ok := c.cache.Get(key); ok {
		c.log.Debug("routing cache hit", zap.String("profile", req.Profile))
		return paths, nil
	}

	paths, err := c.next.Route(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(paths) > 0 {
		c.cache.Add(key, paths)
	}
	return paths, nil
}

func cacheKey(req Request) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
