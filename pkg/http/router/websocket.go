package router

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gobwas/ws"
	"github.com/lintang-b-s/navigatorx-navi/pkg/concurrent"
	http_server "github.com/lintang-b-s/navigatorx-navi/pkg/http/server"
	"github.com/mailru/easygo/netpoll"
	"go.uber.org/zap"
)

const (
	wsPoolSize    = 15
	wsPoolQueue   = 10
	wsPoolWorkers = 10
)

// handleWebsocket serves browser location feeds on the websocket port until ctx is done.
// Readiness of every connection is watched with epoll, reads run on the worker pool.
func (api *API) handleWebsocket(ctx context.Context, config http_server.Config, errChan chan<- error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", config.WebsocketPort))
	if err != nil {
		errChan <- err
		return
	}
	api.log.Info(fmt.Sprintf("navigation websocket API run on port %d", config.WebsocketPort))

	acceptDesc := netpoll.Must(netpoll.HandleListener(
		ln, netpoll.EventRead|netpoll.EventOneShot,
	))

	api.poller, err = netpoll.New(nil)
	if err != nil {
		ln.Close()
		errChan <- err
		return
	}

	api.pool = concurrent.NewWorkerPool(wsPoolSize, wsPoolQueue)
	api.pool.Spawn(wsPoolWorkers)

	// accept is a channel to signal about next incoming connection Accept()
	// results.
	accept := make(chan error, 1)

	api.poller.Start(acceptDesc, func(netpoll.Event) {
		// the listener is registered one shot, resume it once this connection is accepted
		defer api.poller.Resume(acceptDesc)
		err := api.pool.ScheduleTimeout(time.Millisecond, func() {
			conn, err := ln.Accept()
			if err != nil {
				accept <- err
				return
			}

			accept <- nil
			api.handle(conn)
		})
		if err == nil {
			err = <-accept
		}
		if err == nil {
			return
		}

		// pool busy for 1 ms or a temporary accept failure, cool down before the next accept
		var ne net.Error
		switch {
		case errors.Is(err, concurrent.ErrScheduleTimeout), errors.As(err, &ne) && ne.Timeout():
			delay := 5 * time.Millisecond
			api.log.Info("accept error, retrying", zap.Error(err), zap.Duration("delay", delay))
			time.Sleep(delay)
		case errors.Is(err, net.ErrClosed), errors.Is(err, concurrent.ErrPoolClosed):
			// shutting down
		default:
			api.log.Error("accept error", zap.Error(err))
			select {
			case errChan <- err:
			default:
			}
		}
	})

	<-ctx.Done()

	api.poller.Stop(acceptDesc)
	ln.Close()
	api.hub.RemoveAllUser()
	api.pool.Close()

	api.log.Info("websocket server stopped")
}

/*
handle upgrades conn and registers it in the hub. Frames are read only when epoll reports the
connection readable, so an idle browser costs no goroutine.
ref: https://sergey.kamardin.org/articles/million-websocket-and-go/
*/
func (api *API) handle(conn net.Conn) {
	br := bufio.NewReader(conn)

	rw := struct {
		io.Reader
		io.Writer
	}{br, conn}

	hs, err := ws.Upgrade(rw)
	if err != nil {
		api.log.Info("upgrade error", zap.Error(err), zap.String("connection", nameConn(conn)))
		conn.Close()
		return
	}

	api.log.Info("established websocket connection", zap.String("connection", nameConn(conn)),
		zap.String("protocol", hs.Protocol))

	user := api.hub.Register(conn)

	desc, err := netpoll.HandleRead(conn)
	if err != nil {
		api.log.Error("watch websocket connection", zap.Error(err))
		api.hub.Remove(user)
		return
	}

	api.poller.Start(desc, func(ev netpoll.Event) {
		if ev&(netpoll.EventReadHup|netpoll.EventHup) != 0 {
			// peer closed its end
			api.log.Info("user disconnected from websocket server", zap.String("connection", nameConn(conn)))

			api.poller.Stop(desc)
			api.hub.Remove(user)
			return
		}

		err := api.pool.Schedule(func() {
			if err := user.Receive(); err != nil {
				api.log.Info("websocket read failed, removing user", zap.Error(err))
				api.poller.Stop(desc)
				api.hub.Remove(user)
			}
		})
		if err != nil {
			api.poller.Stop(desc)
			api.hub.Remove(user)
		}
	})
}

func nameConn(conn net.Conn) string {
	return conn.LocalAddr().String() + " > " + conn.RemoteAddr().String()
}
