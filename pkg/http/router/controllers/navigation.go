package controllers

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/lintang-b-s/navigatorx-navi/pkg/custommodel"
	helper "github.com/lintang-b-s/navigatorx-navi/pkg/http/router/routerhelper"
	"github.com/lintang-b-s/navigatorx-navi/pkg/routing"
	"github.com/lintang-b-s/navigatorx-navi/pkg/util"
	"go.uber.org/zap"
)

type navigationAPI struct {
	service   NavigationService
	validator *util.Validator
	log       *zap.Logger
	now       func() time.Time
}

func New(service NavigationService, log *zap.Logger) *navigationAPI {
	return &navigationAPI{
		service:   service,
		validator: util.NewValidator(),
		log:       log,
		now:       time.Now,
	}
}

func (api *navigationAPI) Routes(group *helper.RouteGroup) {
	nav := group.Group("/navigation")
	nav.POST("/route", api.route)
	nav.POST("/start", api.start)
	nav.POST("/stop", api.stop)
	nav.PUT("/settings", api.updateSettings)
	nav.DELETE("/notification", api.dismissNotification)
	nav.GET("/state", api.state)
	nav.POST("/fix", api.fix)
}

// route plans a route through the requested points and selects the first path for navigation.
//
//	@Summary		plan and select a route
//	@Tags			navigation
//	@Accept			json
//	@Produce		json
//	@Router			/navigation/route [post]
func (api *navigationAPI) route(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request routeRequest
	if err := readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := api.validator.Struct(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	cm, err := custommodel.Parse(request.CustomModel)
	if err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	req := routing.NewRequest(request.Profile, cm, request.Points...)
	if request.Heading != nil {
		req = req.WithHeading(*request.Heading)
	}
	if request.MaxAlternativeRoutes > 0 {
		req = req.WithAlternatives(request.MaxAlternativeRoutes)
	}

	paths, err := api.service.Plan(r.Context(), req)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewRouteResponse(paths)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

//	@Summary		start navigating the selected route
//	@Tags			navigation
//	@Router			/navigation/start [post]
func (api *navigationAPI) start(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request startRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &request); err != nil {
			api.BadRequestResponse(w, r, err)
			return
		}
	}
	if err := api.service.Start(r.Context(), request.FakeGPS, request.Fullscreen); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	api.writeState(w, r)
}

func (api *navigationAPI) stop(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := api.service.Stop(r.Context()); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	api.writeState(w, r)
}

func (api *navigationAPI) updateSettings(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request settingsRequest
	if err := readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := api.service.UpdateSettings(r.Context(), request.toUpdate()); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	api.writeState(w, r)
}

func (api *navigationAPI) dismissNotification(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := api.service.DismissNotification(r.Context()); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

//	@Summary		current navigation snapshot
//	@Tags			navigation
//	@Produce		json
//	@Router			/navigation/state [get]
func (api *navigationAPI) state(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	api.writeState(w, r)
}

// fix pushes one location sample, for clients without a websocket connection.
func (api *navigationAPI) fix(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request fixRequest
	if err := readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := api.validator.Struct(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := api.service.PushFix(request.toFix(api.now())); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (api *navigationAPI) writeState(w http.ResponseWriter, r *http.Request) {
	snap, err := api.service.State(r.Context())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, envelope{"data": snap}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}
