package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/baucua-game/baucua/internal/protocol"
)

const sendTimeout = 3 * time.Second

// WS is the websocket-backed Network. An endpoint name claims a slot in
// this process and a /ws route on the listen address; clients reach it
// through the broker address with the name as a query parameter, so the
// name is all a player ever has to share.
type WS struct {
	listenAddr string
	brokerAddr string
	log        *zap.SugaredLogger

	mu    sync.Mutex
	names map[string]*wsEndpoint
}

func NewWS(listenAddr, brokerAddr string, log *zap.SugaredLogger) *WS {
	return &WS{
		listenAddr: listenAddr,
		brokerAddr: brokerAddr,
		log:        log,
		names:      make(map[string]*wsEndpoint),
	}
}

func (w *WS) Listen(name string) (Endpoint, error) {
	w.mu.Lock()
	if _, exists := w.names[name]; exists {
		w.mu.Unlock()
		return nil, ErrNameTaken
	}
	ep := &wsEndpoint{
		name:   name,
		events: make(chan Event, 64),
		net:    w,
		log:    w.log,
	}
	w.names[name] = ep
	w.mu.Unlock()

	ln, err := net.Listen("tcp", w.listenAddr)
	if err != nil {
		w.mu.Lock()
		delete(w.names, name)
		w.mu.Unlock()
		return nil, fmt.Errorf("bind %s: %w", w.listenAddr, err)
	}

	r := chi.NewRouter()
	r.Get("/ws", ep.wsHandler)
	r.Get("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})
	ep.srv = &http.Server{Handler: r}
	go func() {
		if err := ep.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			w.log.Warnw("endpoint server stopped", "name", name, "err", err)
		}
	}()
	w.log.Infow("listening", "name", name, "addr", ln.Addr().String())
	return ep, nil
}

func (w *WS) Dial(ctx context.Context, name string) (Link, <-chan Event, error) {
	url := fmt.Sprintf("ws://%s/ws?room=%s", w.brokerAddr, name)
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", name, err)
	}
	events := make(chan Event, 64)
	link := newWSLink(conn, events)
	go link.readLoop()
	return link, events, nil
}

type wsEndpoint struct {
	name   string
	events chan Event
	srv    *http.Server
	net    *WS
	log    *zap.SugaredLogger
	closed sync.Once
}

func (e *wsEndpoint) Name() string         { return e.name }
func (e *wsEndpoint) Events() <-chan Event { return e.events }

func (e *wsEndpoint) Close() error {
	e.closed.Do(func() {
		e.net.mu.Lock()
		delete(e.net.names, e.name)
		e.net.mu.Unlock()
		if e.srv != nil {
			_ = e.srv.Close()
		}
	})
	return nil
}

func (e *wsEndpoint) wsHandler(rw http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("room") != e.name {
		http.Error(rw, "room not found", http.StatusNotFound)
		return
	}
	conn, err := websocket.Accept(rw, r, nil)
	if err != nil {
		e.log.Warnw("ws accept failed", "err", err)
		return
	}
	link := newWSLink(conn, e.events)
	e.events <- Opened{Link: link}
	link.readLoop()
}

type wsLink struct {
	id      string
	conn    *websocket.Conn
	deliver chan Event
}

func newWSLink(conn *websocket.Conn, deliver chan Event) *wsLink {
	return &wsLink{id: uuid.NewString(), conn: conn, deliver: deliver}
}

func (l *wsLink) ID() string { return l.id }

func (l *wsLink) Send(env protocol.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := l.conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("%w: %v", ErrLinkClosed, err)
	}
	return nil
}

func (l *wsLink) Close() error {
	return l.conn.Close(websocket.StatusNormalClosure, "bye")
}

// readLoop pumps envelopes into the event stream until the link dies.
// Exactly one Closed event is emitted, at the end.
func (l *wsLink) readLoop() {
	for {
		_, data, err := l.conn.Read(context.Background())
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				// clean close, nothing to report
			default:
				l.deliver <- Errored{Link: l, Err: err}
			}
			l.deliver <- Closed{Link: l}
			return
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// not our framing; drop it and keep reading
			continue
		}
		l.deliver <- Data{Link: l, Env: env}
	}
}
