package ws

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"courtmux/server/internal/net/proto"
)

const (
	writeTimeout  = 5 * time.Second
	outboundDepth = 128
)

// Transport writes frames to one websocket connection. Sends are
// non-blocking enqueues onto a buffered channel drained by a single
// writer goroutine, so callers may hold locks across Send. A full queue
// drops the frame; a slow client loses messages, not the whole hub.
type Transport struct {
	conn   *websocket.Conn
	logger *log.Logger

	out  chan string
	done chan struct{}
	once sync.Once
}

func newTransport(conn *websocket.Conn, logger *log.Logger) *Transport {
	if logger == nil {
		logger = log.Default()
	}
	t := &Transport{
		conn:   conn,
		logger: logger,
		out:    make(chan string, outboundDepth),
		done:   make(chan struct{}),
	}
	go t.writeLoop()
	return t
}

// Send enqueues one frame.
func (t *Transport) Send(name string, args ...string) {
	frame := proto.Encode(name, args...)
	select {
	case t.out <- frame:
	case <-t.done:
	default:
		t.logger.Printf("ws: outbound queue full, dropping %s frame for %s", name, t.conn.RemoteAddr())
	}
}

// Close tears the connection down; idempotent.
func (t *Transport) Close() {
	t.once.Do(func() {
		close(t.done)
		t.conn.Close()
	})
}

func (t *Transport) writeLoop() {
	for {
		select {
		case <-t.done:
			return
		case frame := <-t.out:
			t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := t.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				t.Close()
				return
			}
		}
	}
}
