// Package http mounts the live stream websocket endpoint
package http

import (
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"lightbox/internal/modkit/httpkit"
	perr "lightbox/internal/platform/errors"
	"lightbox/internal/platform/logger"
	"lightbox/internal/services/stream/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	HandshakeTimeout: 10 * time.Second,
	// Origin policy is enforced at the gateway; API clients omit the header
	CheckOrigin: func(*http.Request) bool { return true },
}

// frame is one inbound control message from the client
type frame struct {
	Op      string `json:"op"`
	Subject string `json:"subject"`
}

// Register mounts the stream routes on the given router
func Register(r httpkit.Router, reg domain.SubscriberPort) {
	r.Get("/", stream(reg))
}

// stream upgrades the request and bridges the connection to the registry
//
// @Summary      Live event stream
// @Description  Upgrades to a websocket. Clients send {"op":"subscribe","subject":"shot:<id>"} frames and receive {subject, kind, seq, payload} frames; a kind "gap" frame means events were shed and the client should re-fetch
// @Tags         stream
// @Success      101 {string} string "switching protocols"
// @Failure      400 {object} httpkit.Envelope
// @Router       /stream [get]
func stream(reg domain.SubscriberPort) httpkit.Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the handshake error
			logger.C(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		c := &wsConn{
			id:   uuid.NewString(),
			ws:   ws,
			reg:  reg,
			log:  logger.Named("stream.ws"),
			send: make(chan domain.Event, sendBuffer),
			dead: make(chan struct{}),
		}
		if err := reg.Connect(c.id, c.push); err != nil {
			c.log.Warn().Err(err).Msg("stream connect rejected")
			_ = ws.Close()
			return
		}
		c.start()
	}
}

// wsConn is a middleman between one websocket connection and the registry
type wsConn struct {
	id   string
	ws   *websocket.Conn
	reg  domain.SubscriberPort
	log  *logger.Logger
	send chan domain.Event
	dead chan struct{}
	once sync.Once
}

func (c *wsConn) start() {
	go c.writePump()
	go c.readPump()
}

// push runs on the registry's delivery loop. It blocks while the writer is
// busy, which is what lets the registry shed load into its ring
func (c *wsConn) push(ev domain.Event) error {
	select {
	case c.send <- ev:
		return nil
	case <-c.dead:
		return perr.New(perr.ErrorCodeUnavailable, "connection closed")
	}
}

// shutdown tears the connection down exactly once from whichever pump fails
// first
func (c *wsConn) shutdown() {
	c.once.Do(func() {
		close(c.dead)
		c.reg.DropConn(c.id)
		_ = c.ws.Close()
	})
}

// readPump consumes control frames until the connection dies
func (c *wsConn) readPump() {
	defer c.shutdown()

	c.ws.SetReadLimit(maxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Str("conn", c.id).Msg("websocket closed unexpectedly")
			}
			return
		}
		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			c.log.Debug().Err(err).Str("conn", c.id).Msg("unparseable stream frame")
			continue
		}
		switch f.Op {
		case "subscribe":
			c.reg.Subscribe(c.id, f.Subject)
		case "unsubscribe":
			c.reg.Unsubscribe(c.id, f.Subject)
		default:
			// unknown ops are ignored so the protocol can grow
		}
	}
}

// writePump serializes outbound frames and keeps the connection alive with
// pings
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case <-c.dead:
			return
		case ev := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				c.log.Warn().Err(err).Str("conn", c.id).Msg("stream frame marshal failed")
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
