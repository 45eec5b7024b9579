// Package speech renders navigation announcements.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/lintang-b-s/navigatorx-navi/pkg/concurrent"
	"github.com/lintang-b-s/navigatorx-navi/pkg/util"
	"go.uber.org/zap"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) error
}

// LogSynthesizer only logs announcements, used when no text-to-speech backend is configured.
type LogSynthesizer struct {
	log *zap.Logger
}

func NewLogSynthesizer(log *zap.Logger) *LogSynthesizer {
	return &LogSynthesizer{log: log}
}

func (s *LogSynthesizer) Synthesize(ctx context.Context, text string) error {
	s.log.Info("announcement", zap.String("text", text))
	return nil
}

// HTTPSynthesizer posts {"text", "lang"} to a text-to-speech service that plays the audio.
type HTTPSynthesizer struct {
	url        string
	lang       string
	httpClient *http.Client
}

func NewHTTPSynthesizer(url, lang string, timeout time.Duration) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		url:        url,
		lang:       lang,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type synthesizeRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang,omitempty"`
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) error {
	body, err := json.Marshal(synthesizeRequest{Text: text, Lang: s.lang})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return util.WrapErrorf(err, util.ErrUnavailable, "text-to-speech request failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return util.WrapErrorf(nil, util.ErrUnavailable, "text-to-speech service returned %d", resp.StatusCode)
	}
	return nil
}

// Multi speaks through every synthesizer, all of them are tried even when one fails.
type Multi []Synthesizer

func (m Multi) Synthesize(ctx context.Context, text string) error {
	var errs []error
	for _, s := range m {
		if err := s.Synthesize(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Queue. fire and forget front of a Synthesizer. Announcements run on the pool, a full pool drops
// the announcement instead of blocking the caller.
type Queue struct {
	synth   Synthesizer
	pool    *concurrent.WorkerPool
	timeout time.Duration
	log     *zap.Logger
}

func NewQueue(synth Synthesizer, pool *concurrent.WorkerPool, timeout time.Duration, log *zap.Logger) *Queue {
	return &Queue{synth: synth, pool: pool, timeout: timeout, log: log}
}

func (q *Queue) Speak(text string) {
	ok := q.pool.TrySchedule(func() {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		defer cancel()
		if err := q.synth.Synthesize(ctx, text); err != nil {
			q.log.Warn("speech synthesis failed", zap.String("text", text), zap.Error(err))
		}
	})
	if !ok {
		q.log.Warn("speech queue full, announcement dropped", zap.String("text", text))
	}
}
