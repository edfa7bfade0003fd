package sonar

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/net/websocket"
)

// Server serves a thing over HTTP.  GET / returns the thing's state as JSON
// and /ws is a websocket onto the thing's bus.
type Server struct {
	http.Server `json:"-"`
	*Bus        `json:"-"`
	*Injector   `json:"-"`
	thinger     Thinger
	mux         *http.ServeMux
	user        string
	passwd      string
}

func NewServer(thinger Thinger) *Server {
	var s Server
	s.thinger = thinger
	s.Bus = NewBus("server bus", nil, nil)
	s.Bus.Handle("", dispatch(thinger))
	s.Injector = NewInjector("server injector", s.Bus)
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/", s.basicAuth(s.serveState))
	s.mux.HandleFunc("/ws", s.basicAuth(s.serveWebSocket))
	s.Server.Handler = s.mux
	return &s
}

func (s *Server) BasicAuth(user, passwd string) {
	s.user, s.passwd = user, passwd
}

// HandleFunc adds an HTTP route behind basic auth
func (s *Server) HandleFunc(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, s.basicAuth(handler))
}

// Mount adds an HTTP handler behind basic auth, for things like /metrics
func (s *Server) Mount(pattern string, handler http.Handler) {
	s.mux.HandleFunc(pattern, s.basicAuth(handler.ServeHTTP))
}

// Dial connects the thing to a remote server's websocket until ctx is done
func (s *Server) Dial(ctx context.Context, user, passwd, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	ws := newWebSocket(u, "", s.Bus)
	return ws.Dial(ctx, user, passwd, s.thinger.Announce())
}

// Run restores the thing's state and runs it until ctx is done
func (s *Server) Run(ctx context.Context) error {
	s.thinger.SetFlag(ThingFlagMetal)
	if err := ThingRestore(s.thinger); err != nil {
		slog.Warn("restore failed", "thing", s.thinger, "err", err)
	}
	return s.thinger.Run(ctx, s.Injector)
}

// replySocket holds the reply to a packet sent on behalf of an HTTP request
type replySocket struct {
	socket
	reply []byte
}

func (r *replySocket) Send(pkt *Packet) error {
	r.reply = append([]byte(nil), pkt.message...)
	return nil
}

// state asks the thing for its state the way a websocket client would
func (s *Server) state(r *http.Request) ([]byte, bool) {
	sock := &replySocket{socket: socket{name: "http:" + r.RemoteAddr, bus: s.Bus}}
	pkt := &Packet{bus: s.Bus, src: sock}
	pkt.Marshal(&ThingMsg{"get/state"})
	s.Bus.receive(pkt)
	return sock.reply, sock.reply != nil
}

func (s *Server) serveState(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	state, ok := s.state(r)
	if !ok {
		http.Error(w, "no state", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(state)
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	ws := newWebSocket(r.URL, r.RemoteAddr, s.Bus)
	serv := websocket.Server{Handler: websocket.Handler(ws.serve)}
	serv.ServeHTTP(w, r)
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(writer http.ResponseWriter, r *http.Request) {

		// skip basic authentication if no user
		if s.user == "" {
			next.ServeHTTP(writer, r)
			return
		}

		ruser, rpasswd, ok := r.BasicAuth()

		if ok {
			userHash := sha256.Sum256([]byte(s.user))
			passHash := sha256.Sum256([]byte(s.passwd))
			ruserHash := sha256.Sum256([]byte(ruser))
			rpassHash := sha256.Sum256([]byte(rpasswd))

			userMatch := (subtle.ConstantTimeCompare(userHash[:], ruserHash[:]) == 1)
			passMatch := (subtle.ConstantTimeCompare(passHash[:], rpassHash[:]) == 1)

			if userMatch && passMatch {
				next.ServeHTTP(writer, r)
				return
			}
		}

		writer.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)
		http.Error(writer, "Unauthorized", http.StatusUnauthorized)
	})
}
