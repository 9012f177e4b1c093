package notifytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

const (
	DefaultSocketPath   = "/api/notify"
	DefaultAPIPrefix    = "/api"
	RegisterPath        = "/users/me/push/register"
	SignatureHeader     = "X-Notify-Signature"
	TimestampHeader     = "X-Notify-Timestamp"
	SignatureIDHeader   = "X-Notify-ID"
	maxRegistrationBody = 1 << 16
)

// Registration is a recorded push registration request.
type Registration struct {
	CID      string `json:"cid"`
	Platform string `json:"platform"`
	AppID    string `json:"appId"`

	Token     string    `json:"-"`
	Signature string    `json:"-"`
	Timestamp string    `json:"-"`
	ID        string    `json:"-"`
	Body      []byte    `json:"-"`
	At        time.Time `json:"-"`
}

// Handshake is a recorded socket handshake.
type Handshake struct {
	Mode         string
	QueryToken   string
	BearerToken  string
	Accepted     bool
	RejectStatus int
}

// Option configures a Server.
type Option func(*Server)

// WithSocketPath sets the socket endpoint path.
func WithSocketPath(p string) Option {
	return func(s *Server) {
		if p != "" {
			s.socketPath = p
		}
	}
}

// WithoutPolling makes polling requests fail with 404.
func WithoutPolling() Option {
	return func(s *Server) { s.polling = false }
}

// Server is a fake notification backend.
type Server struct {
	socketPath string
	polling    bool
	upgrader   websocket.Upgrader
	http       *httptest.Server

	mu             sync.Mutex
	conns          map[*websocket.Conn]string
	handshakes     []Handshake
	rejectStatus   int
	rejectWS       int
	pollQueue      [][]byte
	pollers        map[string]time.Time
	registrations  []Registration
	registerStatus []int
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		socketPath: DefaultSocketPath,
		polling:    true,
		upgrader:   websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		conns:      make(map[*websocket.Conn]string),
		pollers:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(s.socketPath, s.handleSocket)
	r.Post(DefaultAPIPrefix+RegisterPath, s.handleRegister)

	s.http = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// URL is the server base URL, usable as the client's websocket base.
func (s *Server) URL() string { return s.http.URL }

// APIBase is the base for the push registration endpoint.
func (s *Server) APIBase() string { return s.http.URL + DefaultAPIPrefix }

// SocketPath returns the socket endpoint path.
func (s *Server) SocketPath() string { return s.socketPath }

// Close drops every link and stops the server.
func (s *Server) Close() {
	s.DisconnectAll()
	s.http.CloseClientConnections()
	s.http.Close()
}

// RejectHandshakes makes every handshake (websocket and polling) fail with
// status. Zero accepts them again.
func (s *Server) RejectHandshakes(status int) {
	s.mu.Lock()
	s.rejectStatus = status
	s.mu.Unlock()
}

// RejectWebsocket makes only websocket upgrades fail with status.
func (s *Server) RejectWebsocket(status int) {
	s.mu.Lock()
	s.rejectWS = status
	s.mu.Unlock()
}

// Connections returns the number of live websocket links.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// ConnectionTokens returns the credentials of live websocket links.
func (s *Server) ConnectionTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.conns))
	for _, tok := range s.conns {
		out = append(out, tok)
	}
	return out
}

// Handshakes returns every handshake seen, in order.
func (s *Server) Handshakes() []Handshake {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Handshake(nil), s.handshakes...)
}

// AcceptedHandshakes counts handshakes that were accepted.
func (s *Server) AcceptedHandshakes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.handshakes {
		if h.Accepted {
			n++
		}
	}
	return n
}

// Pollers returns the number of distinct tokens that polled in the last second.
func (s *Server) Pollers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, at := range s.pollers {
		if time.Since(at) < time.Second {
			n++
		}
	}
	return n
}

// Push sends a frame to every websocket link and queues it for pollers.
func (s *Server) Push(event string, payload any) error {
	p, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(map[string]json.RawMessage{
		"event":   mustJSON(event),
		"payload": p,
	})
	if err != nil {
		return err
	}
	s.PushRaw(frame)
	return nil
}

// PushRaw sends data verbatim as one frame.
func (s *Server) PushRaw(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.conns {
		_ = c.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.WriteMessage(websocket.TextMessage, data)
	}
	if s.polling {
		s.pollQueue = append(s.pollQueue, append([]byte(nil), data...))
	}
}

// DisconnectAll closes every live websocket link.
func (s *Server) DisconnectAll() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server restart"),
			time.Now().Add(time.Second))
		_ = c.Close()
	}
}

// QueueRegisterStatus programs the status codes returned by the next
// registration requests. Once the queue is empty requests get 200.
func (s *Server) QueueRegisterStatus(codes ...int) {
	s.mu.Lock()
	s.registerStatus = append(s.registerStatus, codes...)
	s.mu.Unlock()
}

// Registrations returns every registration request received.
func (s *Server) Registrations() []Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Registration(nil), s.registrations...)
}

// RegisterCalls returns the number of registration requests received.
func (s *Server) RegisterCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.registrations)
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("transport") == "polling" {
		s.handlePoll(w, r)
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "expected websocket upgrade", http.StatusBadRequest)
		return
	}

	h := Handshake{
		Mode:        "websocket",
		QueryToken:  r.URL.Query().Get("token"),
		BearerToken: bearer(r),
	}

	s.mu.Lock()
	status := s.rejectStatus
	if status == 0 {
		status = s.rejectWS
	}
	if status != 0 {
		h.RejectStatus = status
		s.handshakes = append(s.handshakes, h)
		s.mu.Unlock()
		http.Error(w, http.StatusText(status), status)
		return
	}
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.Accepted = true
	s.mu.Lock()
	s.handshakes = append(s.handshakes, h)
	s.conns[conn] = tokenOf(h)
	s.mu.Unlock()

	go s.readLoop(conn)
}

func (s *Server) readLoop(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	h := Handshake{
		Mode:        "polling",
		QueryToken:  r.URL.Query().Get("token"),
		BearerToken: bearer(r),
	}

	s.mu.Lock()
	if !s.polling {
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	if s.rejectStatus != 0 {
		status := s.rejectStatus
		h.RejectStatus = status
		s.handshakes = append(s.handshakes, h)
		s.mu.Unlock()
		http.Error(w, http.StatusText(status), status)
		return
	}
	h.Accepted = true
	tok := tokenOf(h)
	if _, seen := s.pollers[tok]; !seen {
		s.handshakes = append(s.handshakes, h)
	}
	s.pollers[tok] = time.Now()
	queued := s.pollQueue
	s.pollQueue = nil
	s.mu.Unlock()

	if len(queued) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	frames := make([]json.RawMessage, 0, len(queued))
	for _, f := range queued {
		frames = append(frames, f)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(frames)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRegistrationBody))
	if err != nil {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return
	}

	var reg Registration
	if err := json.Unmarshal(body, &reg); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	reg.Body = body
	reg.Token = bearer(r)
	reg.Signature = r.Header.Get(SignatureHeader)
	reg.Timestamp = r.Header.Get(TimestampHeader)
	reg.ID = r.Header.Get(SignatureIDHeader)
	reg.At = time.Now()

	s.mu.Lock()
	s.registrations = append(s.registrations, reg)
	status := http.StatusOK
	if len(s.registerStatus) > 0 {
		status = s.registerStatus[0]
		s.registerStatus = s.registerStatus[1:]
	}
	s.mu.Unlock()

	if reg.Token == "" && status < 300 {
		status = http.StatusUnauthorized
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": status < 300})
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
		return tok
	}
	return ""
}

func tokenOf(h Handshake) string {
	if h.BearerToken != "" {
		return h.BearerToken
	}
	return h.QueryToken
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
