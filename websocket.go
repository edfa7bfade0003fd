package sonar

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"
)

// webSocket wraps a websocket.Conn and implements the Socketer interface
type webSocket struct {
	socket
	sync.Mutex
	url          *url.URL
	conn         *websocket.Conn
	closing      atomic.Bool
	pingPeriod   time.Duration
	pingSent     time.Time
	pongRecieved bool
}

const pingPeriodMin = time.Second

var errNoConn = errors.New("send on nil connection")

func newWebSocket(url *url.URL, remoteAddr string, bus *Bus) *webSocket {
	w := &webSocket{}

	var name string
	if remoteAddr == "" {
		name = "ws:localhost::" + url.String()
	} else {
		name = "ws:" + url.String() + "::" + remoteAddr
	}

	w.socket = socket{name, "", SocketFlagBcast, bus}
	w.url = url

	/* param ping-period */
	period, _ := strconv.Atoi(url.Query().Get("ping-period"))
	w.pingPeriod = time.Duration(period) * time.Second
	if w.pingPeriod < pingPeriodMin {
		w.pingPeriod = pingPeriodMin
	}

	return w
}

func (w *webSocket) Close() {
	w.closing.Store(true)
}

func (w *webSocket) Send(pkt *Packet) error {
	w.Lock()
	defer w.Unlock()
	if w.conn == nil {
		return errNoConn
	}
	slog.Debug("send", "socket", w, "packet", pkt)
	return websocket.Message.Send(w.conn, string(pkt.message))
}

func (w *webSocket) newConfig(user, passwd string) (*websocket.Config, error) {
	url := w.url.String()
	origin := "http://localhost/"

	config, err := websocket.NewConfig(url, origin)
	if err != nil {
		return nil, err
	}

	if user != "" {
		// Set the basic auth header for the request
		req, err := http.NewRequest("GET", url, nil)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(user, passwd)
		config.Header = req.Header
	}

	return config, nil
}

func (w *webSocket) announced(announce *Packet) bool {

	var pkt = &Packet{bus: w.bus, src: w}

	if err := w.Send(announce); err != nil {
		slog.Warn("sending announcement", "socket", w, "err", err)
		return false
	}

	// Any packet received is an ack of the announcement
	w.conn.SetReadDeadline(time.Now().Add(time.Second))
	err := websocket.Message.Receive(w.conn, &pkt.message)
	if err == nil {
		w.bus.receive(pkt)
		return true
	}

	return false
}

// Dial connects to a remote server, announces the thing, and serves packets
// until ctx is done.  A dropped connection is redialed after a second.
func (w *webSocket) Dial(ctx context.Context, user, passwd string, announce *Packet) error {

	cfg, err := w.newConfig(user, passwd)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		w.Close()
	}()

	for {
		conn, err := websocket.DialConfig(cfg)
		if err == nil {
			w.connect(conn)
			if w.announced(announce) {
				// Serve websocket until EOF or error
				w.serveClient()
			}
			w.disconnect()
			conn.Close()
		} else {
			slog.Warn("dial", "socket", w, "err", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func (w *webSocket) connect(conn *websocket.Conn) {
	slog.Info("connecting", "socket", w)
	w.Lock()
	w.conn = conn
	w.Unlock()
	w.bus.plugin(w)
}

func (w *webSocket) disconnect() {
	slog.Info("disconnecting", "socket", w)
	w.bus.unplug(w)
	w.Lock()
	w.conn = nil
	w.Unlock()
}

var pingMsg = []byte("ping")
var pongMsg = []byte("pong")

func (w *webSocket) serve(conn *websocket.Conn) {
	w.connect(conn)
	w.serveServer()
	w.disconnect()
}

func (w *webSocket) ping() {
	w.pongRecieved = false
	w.pingSent = time.Now()
	w.Lock()
	websocket.Message.Send(w.conn, string(pingMsg))
	w.Unlock()
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (w *webSocket) serveClient() {

	w.ping()

	for {
		var pkt = &Packet{bus: w.bus, src: w}

		if w.closing.Load() {
			slog.Info("closing", "socket", w)
			break
		}

		w.conn.SetReadDeadline(time.Now().Add(time.Second))
		err := websocket.Message.Receive(w.conn, &pkt.message)
		if err == nil {
			if bytes.Equal(pkt.message, pongMsg) {
				w.pongRecieved = true
			} else {
				w.bus.receive(pkt)
			}
		} else if isTimeout(err) {
			// allow timeout errors
		} else {
			slog.Info("disconnecting", "socket", w, "err", err)
			break
		}

		if time.Now().After(w.pingSent.Add(w.pingPeriod)) {
			if !w.pongRecieved {
				slog.Warn("no pong; disconnecting", "socket", w)
				break
			}
			w.ping()
		}
	}
}

func (w *webSocket) serveServer() {

	pingCheck := w.pingPeriod + (4 * time.Second)
	lastRecv := time.Now()

	for {
		var pkt = &Packet{bus: w.bus, src: w}

		if w.closing.Load() {
			slog.Info("closing", "socket", w)
			break
		}

		w.conn.SetReadDeadline(time.Now().Add(time.Second))
		err := websocket.Message.Receive(w.conn, &pkt.message)
		if err == nil {
			lastRecv = time.Now()
			if bytes.Equal(pkt.message, pingMsg) {
				w.Lock()
				err := websocket.Message.Send(w.conn, string(pongMsg))
				w.Unlock()
				if err != nil {
					slog.Warn("sending pong, disconnecting", "socket", w, "err", err)
					break
				}
			} else {
				w.bus.receive(pkt)
			}
			continue
		}

		if isTimeout(err) {
			if time.Now().After(lastRecv.Add(pingCheck)) {
				slog.Warn("timeout, disconnecting", "socket", w, "idle", time.Since(lastRecv))
				break
			}
			continue
		}

		slog.Info("disconnecting", "socket", w, "err", err)
		break
	}
}
