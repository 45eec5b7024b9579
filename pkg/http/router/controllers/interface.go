package controllers

import (
	"context"

	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-navi/pkg/navigation"
	"github.com/lintang-b-s/navigatorx-navi/pkg/routing"
)

type NavigationService interface {
	Plan(ctx context.Context, req routing.Request) ([]*datastructure.Path, error)
	Start(ctx context.Context, useFakeGPS, fullscreen bool) error
	Stop(ctx context.Context) error
	UpdateSettings(ctx context.Context, update navigation.SettingsUpdate) error
	DismissNotification(ctx context.Context) error
	State(ctx context.Context) (navigation.Snapshot, error)
	PushFix(fix datastructure.Fix) error
	PushLocationError(msg string) error
	Subscribe() (<-chan navigation.Snapshot, func())
}
