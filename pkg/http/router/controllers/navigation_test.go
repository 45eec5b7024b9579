package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure/pathtest"
	helper "github.com/lintang-b-s/navigatorx-navi/pkg/http/router/routerhelper"
	"github.com/lintang-b-s/navigatorx-navi/pkg/navigation"
	"github.com/lintang-b-s/navigatorx-navi/pkg/routing"
	"github.com/lintang-b-s/navigatorx-navi/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeService struct {
	mu sync.Mutex

	planReq   routing.Request
	planPaths []*datastructure.Path
	planErr   error

	startFake, startFullscreen bool
	startErr                   error
	update                     navigation.SettingsUpdate
	dismissed                  bool

	fixes     []datastructure.Fix
	locErrors []string
	pushErr   error

	snap    navigation.Snapshot
	updates chan navigation.Snapshot
}

func (s *fakeService) Plan(ctx context.Context, req routing.Request) ([]*datastructure.Path, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planReq = req
	return s.planPaths, s.planErr
}

func (s *fakeService) Start(ctx context.Context, useFakeGPS, fullscreen bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startFake, s.startFullscreen = useFakeGPS, fullscreen
	return s.startErr
}

func (s *fakeService) Stop(ctx context.Context) error {
	return nil
}

func (s *fakeService) UpdateSettings(ctx context.Context, update navigation.SettingsUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.update = update
	return nil
}

func (s *fakeService) DismissNotification(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dismissed = true
	return nil
}

func (s *fakeService) State(ctx context.Context) (navigation.Snapshot, error) {
	return s.snap, nil
}

func (s *fakeService) PushFix(fix datastructure.Fix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pushErr != nil {
		return s.pushErr
	}
	s.fixes = append(s.fixes, fix)
	return nil
}

func (s *fakeService) PushLocationError(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pushErr != nil {
		return s.pushErr
	}
	s.locErrors = append(s.locErrors, msg)
	return nil
}

func (s *fakeService) Subscribe() (<-chan navigation.Snapshot, func()) {
	return s.updates, func() {}
}

func newTestRouter(svc NavigationService) http.Handler {
	router := httprouter.New()
	api := New(svc, zap.NewNop())
	api.now = func() time.Time { return time.Unix(1700000000, 0) }
	api.Routes(helper.NewRouteGroup(router, "/api"))
	return router
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRoute(t *testing.T) {
	path := pathtest.East(0, 36, pathtest.Leg{Points: 4, Turns: []int{2}})
	svc := &fakeService{planPaths: []*datastructure.Path{path}}
	h := newTestRouter(svc)

	body := `{
		"points": [{"lat": 0, "lon": 0}, {"lat": 0, "lon": 0.004}],
		"profile": "car",
		"heading": 90,
		"max_alternative_routes": 2,
		"custom_model": {"priority": [{"if": "road_class == MOTORWAY", "multiply_by": 0.5}]}
	}`
	rec := do(t, h, http.MethodPost, "/api/navigation/route", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			Paths []struct {
				Points       string `json:"points"`
				Instructions []struct {
					Sign     int    `json:"sign"`
					TurnType string `json:"turn_type"`
					Text     string `json:"text"`
				} `json:"instructions"`
			} `json:"paths"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Paths, 1)
	assert.Equal(t, path.GetEncodedPoints(), resp.Data.Paths[0].Points)
	require.Len(t, resp.Data.Paths[0].Instructions, 3)
	assert.Equal(t, datastructure.TURN_LEFT, resp.Data.Paths[0].Instructions[1].Sign)
	assert.Equal(t, "Turn left", resp.Data.Paths[0].Instructions[1].Text)
	assert.Equal(t, "TURN_LEFT", resp.Data.Paths[0].Instructions[1].TurnType)

	req := svc.planReq
	assert.Equal(t, "car", req.Profile)
	assert.Len(t, req.Points, 2)
	require.NotNil(t, req.Heading)
	assert.InDelta(t, 90, *req.Heading, 1e-9)
	assert.Equal(t, 2, req.MaxAlternativeRoutes)
	require.NotNil(t, req.CustomModel)
	require.Len(t, req.CustomModel.Priority, 1)
}

func TestRouteRejected(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		planErr    error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "single point",
			body:       `{"points": [{"lat": 0, "lon": 0}], "profile": "car"}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "validation error",
		},
		{
			name:       "latitude out of range",
			body:       `{"points": [{"lat": 91, "lon": 0}, {"lat": 0, "lon": 1}], "profile": "car"}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "validation error",
		},
		{
			name:       "missing profile",
			body:       `{"points": [{"lat": 0, "lon": 0}, {"lat": 0, "lon": 1}]}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "validation error",
		},
		{
			name:       "unknown field",
			body:       `{"points": [], "profile": "car", "vehicle": "bike"}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    `unknown key "vehicle"`,
		},
		{
			name: "invalid custom model",
			body: `{"points": [{"lat": 0, "lon": 0}, {"lat": 0, "lon": 1}], "profile": "car",
				"custom_model": {"priority": [{"multiply_by": 0.5}]}}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no route",
			body:       `{"points": [{"lat": 0, "lon": 0}, {"lat": 0, "lon": 1}], "profile": "car"}`,
			planErr:    navigation.ErrNoRoute,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "backend down",
			body:       `{"points": [{"lat": 0, "lon": 0}, {"lat": 0, "lon": 1}], "profile": "car"}`,
			planErr:    util.WrapErrorf(nil, util.ErrUnavailable, "routing backend returned 503"),
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{planErr: tt.planErr}
			rec := do(t, newTestRouter(svc), http.MethodPost, "/api/navigation/route", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, http.StatusText(tt.wantStatus), body.Error.Code)
			assert.Contains(t, body.Error.Message, tt.wantMsg)
		})
	}
}

func TestStartAndSettings(t *testing.T) {
	svc := &fakeService{snap: navigation.Snapshot{Started: true, WakeLock: true}}
	h := newTestRouter(svc)

	rec := do(t, h, http.MethodPost, "/api/navigation/start", `{"fake_gps": false, "fullscreen": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, svc.startFake)
	assert.True(t, svc.startFullscreen)

	var resp struct {
		Data navigation.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Started)
	assert.True(t, resp.Data.WakeLock)

	rec = do(t, h, http.MethodPost, "/api/navigation/start", "")
	assert.Equal(t, http.StatusOK, rec.Code, "empty body starts with defaults")

	svc.startErr = navigation.ErrRiskNotAccepted
	rec = do(t, h, http.MethodPost, "/api/navigation/start", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/navigation/settings", `{"sound_enabled": true, "accepted_risk": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.update.SoundEnabled)
	assert.True(t, *svc.update.SoundEnabled)
	require.NotNil(t, svc.update.AcceptedRisk)
	assert.Nil(t, svc.update.FakeGPS)

	rec = do(t, h, http.MethodDelete, "/api/navigation/notification", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, svc.dismissed)

	rec = do(t, h, http.MethodGet, "/api/navigation/state", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFix(t *testing.T) {
	svc := &fakeService{}
	h := newTestRouter(svc)

	rec := do(t, h, http.MethodPost, "/api/navigation/fix", `{"lat": -7.78, "lon": 110.37, "heading": null, "speed": 4.5}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, svc.fixes, 1)
	fix := svc.fixes[0]
	assert.InDelta(t, -7.78, fix.Lat(), 1e-9)
	assert.InDelta(t, 110.37, fix.Lon(), 1e-9)
	assert.Equal(t, -1.0, fix.Heading(), "unknown heading")
	assert.InDelta(t, 4.5, fix.Speed(), 1e-9)
	assert.Equal(t, time.Unix(1700000000, 0), fix.Time())

	rec = do(t, h, http.MethodPost, "/api/navigation/fix", `{"lat": 0, "lon": 0, "heading": 360}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.pushErr = util.WrapErrorf(nil, util.ErrConflict, "not watching")
	rec = do(t, h, http.MethodPost, "/api/navigation/fix", `{"lat": 0, "lon": 0}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, svc.fixes, 1)
}
