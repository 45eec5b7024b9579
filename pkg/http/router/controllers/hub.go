package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/lintang-b-s/navigatorx-navi/pkg/util"
	"go.uber.org/zap"
)

const (
	frameFix      = "fix"
	frameError    = "error"
	frameSnapshot = "snapshot"
	frameSpeech   = "speech"
)

// clientFrame. message from the browser, a geolocation fix or a geolocation failure.
type clientFrame struct {
	Type string `json:"type" validate:"required,oneof=fix error"`
	fixRequest
	Message string `json:"message" validate:"required_if=Type error"`
}

type serverFrame struct {
	Type  string            `json:"type"`
	Data  any               `json:"data,omitempty"`
	Text  string            `json:"text,omitempty"`
	Error map[string]string `json:"error,omitempty"`
}

type User struct {
	io   sync.Mutex
	conn io.ReadWriteCloser

	id  uint
	hub *Hub
}

func (u *User) readRequest() (*clientFrame, error) {
	u.io.Lock()
	defer u.io.Unlock()

	h, r, err := wsutil.NextReader(u.conn, ws.StateServerSide)
	if err != nil {
		return nil, err
	}
	if h.OpCode.IsControl() {
		return nil, wsutil.ControlFrameHandler(u.conn, ws.StateServerSide)(h, r)
	}

	req := &clientFrame{}
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(req); err != nil {
		return nil, err
	}
	return req, nil
}

// Receive reads one frame and forwards it to the navigation service. Rejected frames are answered
// with an error frame, only connection failures are returned.
func (u *User) Receive() error {
	req, err := u.readRequest()
	if err != nil {
		u.conn.Close()
		return err
	}
	if req == nil {
		return nil
	}

	if err := u.hub.validator.Struct(req); err != nil {
		return u.writeError(http.StatusBadRequest, err)
	}

	switch req.Type {
	case frameFix:
		err = u.hub.service.PushFix(req.toFix(u.hub.now()))
	case frameError:
		err = u.hub.service.PushLocationError(req.Message)
	}
	if err != nil {
		return u.writeError(statusOf(util.ErrorCode(err)), err)
	}
	return nil
}

func (u *User) writeError(status int, err error) error {
	return u.write(serverFrame{Type: frameError, Error: map[string]string{
		"code":    http.StatusText(status),
		"message": err.Error(),
	}})
}

func (u *User) write(x interface{}) error {
	w := wsutil.NewWriter(u.conn, ws.StateServerSide, ws.OpText)
	encoder := json.NewEncoder(w)

	u.io.Lock()
	defer u.io.Unlock()

	if err := encoder.Encode(x); err != nil {
		return err
	}

	return w.Flush()
}

// Hub. connected browsers. Every snapshot and announcement is pushed to all of them.
type Hub struct {
	mu  sync.RWMutex
	seq uint
	us  []*User
	ns  map[uint]*User

	service   NavigationService
	validator *util.Validator
	log       *zap.Logger
	now       func() time.Time
}

func NewHub(service NavigationService, log *zap.Logger) *Hub {
	hub := &Hub{
		ns:        make(map[uint]*User),
		us:        make([]*User, 0),
		service:   service,
		validator: util.NewValidator(),
		log:       log,
		now:       time.Now,
	}

	return hub
}

func (h *Hub) Register(conn net.Conn) *User {
	user := &User{
		hub:  h,
		conn: conn,
	}

	h.mu.Lock()
	user.id = h.seq
	h.ns[user.id] = user
	h.us = append(h.us, user)

	h.seq++
	h.mu.Unlock()

	return user
}

func (h *Hub) Remove(user *User) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.ns[user.id]; !ok {
		return
	}
	delete(h.ns, user.id)
	user.conn.Close()

	i := sort.Search(len(h.us), func(i int) bool {
		return h.us[i].id >= user.id
	})

	newUs := make([]*User, len(h.us)-1)
	copy(newUs[:i], h.us[:i])
	copy(newUs[i:], h.us[i+1:])
	h.us = newUs
}

func (h *Hub) RemoveAllUser() {
	for _, user := range h.users() {
		h.Remove(user)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.us)
}

func (h *Hub) users() []*User {
	h.mu.RLock()
	defer h.mu.RUnlock()
	us := make([]*User, len(h.us))
	copy(us, h.us)
	return us
}

// Broadcast writes x to every user, users failing the write are removed.
func (h *Hub) Broadcast(x interface{}) {
	for _, user := range h.users() {
		if err := user.write(x); err != nil {
			h.log.Info("websocket write failed, removing user", zap.Uint("user", user.id), zap.Error(err))
			h.Remove(user)
		}
	}
}

// Run pushes every navigation snapshot to the connected users until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	updates, unsubscribe := h.service.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-updates:
			h.Broadcast(serverFrame{Type: frameSnapshot, Data: snap})
		}
	}
}

// Synthesize sends the announcement to the browsers, which speak it with their own voice.
func (h *Hub) Synthesize(ctx context.Context, text string) error {
	h.Broadcast(serverFrame{Type: frameSpeech, Text: text})
	return nil
}
