package server

import (
	"net/http"
	"time"

	"github.com/dori/taskdeck/internal/docstore"
	"github.com/dori/taskdeck/internal/rpc"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Access is enforced by the token, not the origin
		return true
	},
}

// watch streams a snapshot of the collection on connect and after every
// change until the client disconnects
func (s *Server) watch(c *gin.Context) {
	collection := c.Query("collection")
	if !docstore.ValidCollection(collection) {
		abortWith(c, rpc.Errorf(rpc.CodeInvalidArgument, "%q is not a collection", collection))
		return
	}
	if !canRead(principalOf(c), collection) {
		abortWith(c, rpc.Errorf(rpc.CodePermissionDenied, "cannot read %s", collection))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Println("websocket upgrade error:", err)
		return
	}
	defer conn.Close()

	// One writer goroutine owns the connection
	events := make(chan docstore.Event, 1)
	done := make(chan struct{})
	push := func(ev docstore.Event) {
		// Keep only the newest pending event
		for {
			select {
			case events <- ev:
				return
			case <-done:
				return
			default:
			}
			select {
			case <-events:
			default:
			}
		}
	}

	unsubscribe := s.store.Subscribe(c.Request.Context(), collection,
		func(docs []docstore.Document) {
			push(docstore.Event{Type: docstore.EventSnapshot, Documents: docs})
		},
		func(err error) {
			push(docstore.Event{Type: docstore.EventError, Message: err.Error()})
		},
	)
	defer unsubscribe()

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case ev := <-events:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(ev); err != nil {
					conn.Close()
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()
	defer close(done)

	// Reader loop: drain messages and keep connection alive via pong handler
	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
