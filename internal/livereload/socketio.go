package livereload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/zishang520/socket.io/v2/socket"
)

// ReloadEvent is the socket.io event clients listen for.
const ReloadEvent = "reload"

// ErrClientGone is returned when sending to a disconnected socket.
var ErrClientGone = errors.New("client disconnected")

// SocketServer accepts socket.io connections and registers each one with a
// Broadcaster for as long as it stays connected.
type SocketServer struct {
	io      *socket.Server
	handler http.Handler
}

// NewSocketServer creates the socket.io endpoint. Its handler should be
// mounted at /socket.io/.
func NewSocketServer(ctx context.Context, b *Broadcaster) *SocketServer {
	logger := ctxlog.FromContext(ctx)
	io := socket.NewServer(nil, nil)
	s := &SocketServer{io: io, handler: io.ServeHandler(nil)}

	io.On("connection", func(args ...any) {
		if len(args) == 0 {
			return
		}
		sock, ok := args[0].(*socket.Socket)
		if !ok {
			return
		}
		c := &socketClient{sock: sock}
		b.Add(c)
		logger.Info("Live reload client connected.", "client", c.ID(), "clients", b.Len())

		sock.On("disconnect", func(reason ...any) {
			b.drop(c)
			logger.Info("Live reload client disconnected.", "client", c.ID(), "reason", fmt.Sprint(reason...))
		})
	})
	return s
}

// Handler serves the socket.io protocol.
func (s *SocketServer) Handler() http.Handler {
	return s.handler
}

// Close disconnects every client and stops the engine.
func (s *SocketServer) Close() error {
	done := make(chan error, 1)
	s.io.Close(func(err error) { done <- err })
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return errors.New("timed out closing socket.io server")
	}
}

type socketClient struct {
	sock *socket.Socket
}

func (c *socketClient) ID() string {
	return string(c.sock.Id())
}

func (c *socketClient) Reload(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.sock.Connected() {
		return ErrClientGone
	}
	return c.sock.Emit(ReloadEvent, map[string]any{
		"run_id": n.RunID,
		"paths":  n.Paths,
		"at":     n.At.UTC().Format(time.RFC3339Nano),
	})
}
