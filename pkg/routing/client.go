// Package routing talks to a GraphHopper compatible routing backend.
package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-navi/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxErrorBody = 4 << 10

type Config struct {
	BaseURL   string
	Key       string
	Locale    string
	Timeout   time.Duration
	RateLimit float64 // requests per second, <= 0 disables limiting
	Burst     int
}

type Client struct {
	baseURL    string
	key        string
	locale     string
	httpClient *http.Client
	limiter    *rate.Limiter
	validate   *util.Validator
	log        *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		key:        cfg.Key,
		locale:     cfg.Locale,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		validate:   util.NewValidator(),
		log:        log,
	}
}

// Route. POST {base}/route and decode every returned path. A backend answering with zero paths is
// not an error.
func (c *Client) Route(ctx context.Context, req Request) ([]*datastructure.Path, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, err
	}
	if err := req.CustomModel.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(newRouteRequest(req, c.locale))
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "encode routing request")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, util.WrapErrorf(err, util.ErrUnavailable, "routing request rate limited")
	}

	endpoint := c.baseURL + "/route"
	if c.key != "" {
		endpoint += "?key=" + url.QueryEscape(c.key)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "build routing request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrUnavailable, "routing request to %s failed", httpReq.URL.Host)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var decoded routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, util.WrapErrorf(err, util.ErrUnavailable, "decode routing response")
	}

	paths := make([]*datastructure.Path, 0, len(decoded.Paths))
	for _, p := range decoded.Paths {
		path, err := p.toPath()
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	c.log.Debug("routing request done",
		zap.String("profile", req.Profile),
		zap.Int("points", len(req.Points)),
		zap.Int("paths", len(paths)),
		zap.Duration("took", time.Since(start)))
	return paths, nil
}

func (c *Client) statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var decoded routeResponse
	msg := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Message != "" {
		msg = decoded.Message
	}
	orig := errors.New(msg)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return util.WrapErrorf(orig, util.ErrUnavailable, "routing backend returned %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return util.WrapErrorf(orig, util.ErrNotFound, "routing backend returned %d", resp.StatusCode)
	default:
		return util.WrapErrorf(orig, util.ErrBadParamInput, "routing backend returned %d", resp.StatusCode)
	}
}
