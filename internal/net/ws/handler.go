package ws

import (
	"context"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	server "courtmux/server"
	"courtmux/server/internal/net/proto"
	"courtmux/server/logging"
	"courtmux/server/logging/network"
)

const readTimeout = 2 * time.Minute

// Dispatcher consumes decoded frames for one session.
type Dispatcher interface {
	Welcome(c *server.Client)
	HandleFrame(c *server.Client, name string, args []string)
}

// Handler upgrades HTTP requests, admits sessions into the world and
// pumps decoded frames into the dispatcher.
type Handler struct {
	world    *server.World
	dispatch Dispatcher
	logger   *log.Logger
	pub      logging.Publisher
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket endpoint for the given world.
func NewHandler(world *server.World, dispatch Dispatcher, logger *log.Logger, pub logging.Publisher) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Handler{
		world:    world,
		dispatch: dispatch,
		logger:   logger,
		pub:      pub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("ws: upgrade failed: %v", err)
		return
	}
	addr := remoteIP(r)
	transport := newTransport(conn, h.logger)

	client, err := h.world.Registry().NewClient(transport, addr)
	if err != nil {
		transport.Send("BD", err.Error())
		network.Rejected(context.Background(), h.pub, network.ConnPayload{Address: addr}, err.Error())
		time.Sleep(100 * time.Millisecond)
		transport.Close()
		return
	}

	ref := logging.SessionRef(strconv.Itoa(client.ID()))
	network.Connected(context.Background(), h.pub, ref, network.ConnPayload{IPID: client.IPID(), Address: addr})
	h.dispatch.Welcome(client)

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.world.Registry().Disconnect(client)
			network.Disconnected(context.Background(), h.pub, ref, network.ConnPayload{IPID: client.IPID()}, err.Error())
			return
		}
		name, args, err := proto.Decode(string(payload))
		if err != nil {
			h.logger.Printf("ws: discarding malformed frame from %s", client.IPID())
			continue
		}
		h.dispatch.HandleFrame(client, name, args)
	}
}

// remoteIP prefers the first proxy-forwarded address, falling back to the
// socket peer.
func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
