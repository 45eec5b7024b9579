package navigation

import (
	"errors"

	"github.com/lintang-b-s/navigatorx-navi/pkg/util"
)

var (
	ErrNoPath          = util.WrapErrorf(nil, util.ErrInternalServerError, "navigation started without a path")
	ErrInvariant       = util.WrapErrorf(nil, util.ErrInternalServerError, "fix does not project onto the active path")
	ErrNotStarted      = util.WrapErrorf(nil, util.ErrConflict, "navigation is not started")
	ErrAlreadyStarted  = util.WrapErrorf(nil, util.ErrConflict, "navigation is already started")
	ErrRiskNotAccepted = util.WrapErrorf(nil, util.ErrBadParamInput, "the risk of using real gps must be accepted first")
	ErrNoRouteSelected = util.WrapErrorf(nil, util.ErrBadParamInput, "no route selected")
	ErrNoRoute         = util.WrapErrorf(nil, util.ErrNotFound, "no route found between the given points")
	ErrEngineStopped   = errors.New("navigation engine stopped")
)
