package routes

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/sardis-labs/agentpay/core/events"
)

// eventRoutes exposes a live read-only view of the event bus for operator
// dashboards, scoped by a glob pattern query parameter (defaulting to
// "*", every event).
type eventRoutes struct {
	srv *Server
}

func newEventRoutes(srv *Server) *eventRoutes { return &eventRoutes{srv: srv} }

func (er *eventRoutes) mount(r chi.Router) {
	r.Get("/stream", er.stream)
}

func (er *eventRoutes) stream(w http.ResponseWriter, r *http.Request) {
	pattern := strings.TrimSpace(r.URL.Query().Get("pattern"))
	if pattern == "" {
		pattern = "*"
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	stream := make(chan events.Event, 64)
	unsubscribe := er.srv.Events.Subscribe(pattern, func(e events.Event) {
		select {
		case stream <- e:
		default:
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-stream:
			if err := writeEvent(ctx, conn, e); err != nil {
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, e events.Event) error {
	return wsjson.Write(ctx, conn, e)
}
