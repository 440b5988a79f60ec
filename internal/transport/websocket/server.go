package websocket

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/yola1107/ludo-arbiter/internal/conf"
	ltransport "github.com/yola1107/ludo-arbiter/internal/transport"
	"github.com/yola1107/ludo-arbiter/library/xgo"
	"github.com/yola1107/ludo-arbiter/pkg/auth"
	"github.com/yola1107/ludo-arbiter/pkg/codes"
)

var (
	_ transport.Server     = (*Server)(nil)
	_ transport.Endpointer = (*Server)(nil)
)

// ServerOption is a relay server option.
type ServerOption func(*Server)

func Network(network string) ServerOption {
	return func(o *Server) { o.network = network }
}
func Address(addr string) ServerOption {
	return func(o *Server) { o.address = addr }
}
func Path(path string) ServerOption {
	return func(o *Server) { o.path = path }
}
func TlsConf(tlsConfig *tls.Config) ServerOption {
	return func(o *Server) { o.tlsConf = tlsConfig }
}
func MaxConnLimit(maxConnLimit int32) ServerOption {
	return func(o *Server) { o.maxConnLimit = maxConnLimit }
}
func Heartbeat(d, i, w time.Duration) ServerOption {
	return func(o *Server) {
		o.sessionConf.ReadDeadline, o.sessionConf.PingInterval, o.sessionConf.WriteTimeout = d, i, w
	}
}
func SentChanSize(size int) ServerOption {
	return func(o *Server) { o.sessionConf.SendChanSize = size }
}
func MaxMessageSize(n int64) ServerOption {
	return func(o *Server) { o.sessionConf.MaxMessageSize = n }
}
func LeaveGrace(d time.Duration) ServerOption {
	return func(o *Server) { o.leaveGrace = d }
}
func RateLimit(limit float64, burst int) ServerOption {
	return func(o *Server) { o.rateLimit, o.rateBurst = rate.Limit(limit), burst }
}
func Auth(secret, issuer string) ServerOption {
	return func(o *Server) { o.secret, o.issuer = secret, issuer }
}

// Server 中继服务. 只负责鉴权、选主和转发, 不解析对局消息
type Server struct {
	*http.Server
	lis          net.Listener
	tlsConf      *tls.Config
	endpoint     *url.URL
	err          error
	path         string
	network      string
	address      string
	maxConnLimit int32
	leaveGrace   time.Duration
	rateLimit    rate.Limit
	rateBurst    int
	secret       string
	issuer       string
	sessionConf  *SessionConfig
	upgrader     *websocket.Upgrader
	sessionMgr   *SessionManager

	mu    sync.Mutex
	rooms map[string]*room
}

// NewServer creates a relay server by options.
func NewServer(opts ...ServerOption) *Server {
	srv := &Server{
		network:    "tcp",
		address:    ":0",
		path:       "/ws",
		leaveGrace: 10 * time.Second,
		sessionConf: &SessionConfig{
			WriteTimeout:   10 * time.Second,
			PingInterval:   15 * time.Second,
			ReadDeadline:   60 * time.Second,
			SendChanSize:   128,
			MaxMessageSize: 64 << 10,
		},
		maxConnLimit: 10000,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessionMgr: NewSessionManager(),
		rooms:      make(map[string]*room),
	}
	for _, o := range opts {
		o(srv)
	}

	router := mux.NewRouter()
	router.HandleFunc(srv.path, srv.handleConnections()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", srv.handleHealth()).Methods(http.MethodGet)
	srv.Server = &http.Server{
		Addr:      srv.address,
		Handler:   CORS(router),
		TLSConfig: srv.tlsConf,
	}
	return srv
}

// NewRelay 按配置创建中继
func NewRelay(c *conf.Server, a *conf.Auth) *Server {
	r := c.Relay
	if r == nil {
		r = &conf.Relay{}
	}
	if a == nil {
		a = &conf.Auth{}
	}
	opts := []ServerOption{
		Address(r.Addr),
		Auth(a.Secret, a.Issuer),
		LeaveGrace(r.LeaveGrace.Duration),
	}
	if r.Path != "" {
		opts = append(opts, Path(r.Path))
	}
	if r.HeartbeatTimeout.Duration > 0 && r.HeartbeatInterval.Duration > 0 && r.WriteTimeout.Duration > 0 {
		opts = append(opts, Heartbeat(r.HeartbeatTimeout.Duration, r.HeartbeatInterval.Duration, r.WriteTimeout.Duration))
	}
	if r.SendQueue > 0 {
		opts = append(opts, SentChanSize(r.SendQueue))
	}
	if r.MaxMessageSize > 0 {
		opts = append(opts, MaxMessageSize(r.MaxMessageSize))
	}
	if r.RateLimit > 0 {
		opts = append(opts, RateLimit(r.RateLimit, r.RateBurst))
	}
	return NewServer(opts...)
}

func (s *Server) Endpoint() (*url.URL, error) {
	if err := s.listenAndEndpoint(); err != nil {
		return nil, err
	}
	return s.endpoint, nil
}

func (s *Server) listenAndEndpoint() error {
	if s.lis == nil {
		lis, err := net.Listen(s.network, s.address)
		if err != nil {
			s.err = err
			return err
		}
		s.lis = lis
	}
	if s.endpoint == nil {
		scheme := "ws"
		if s.tlsConf != nil {
			scheme = "wss"
		}
		s.endpoint = &url.URL{Scheme: scheme, Host: s.lis.Addr().String(), Path: s.path}
	}
	return s.err
}

// Start start the relay server.
func (s *Server) Start(ctx context.Context) error {
	if err := s.listenAndEndpoint(); err != nil {
		return err
	}
	s.BaseContext = func(net.Listener) context.Context {
		return ctx
	}
	log.Infof("[relay] server listening on: %s", s.lis.Addr().String())
	var err error
	if s.tlsConf != nil {
		err = s.ServeTLS(s.lis, "", "")
	} else {
		err = s.Serve(s.lis)
	}
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stop the relay server.
func (s *Server) Stop(ctx context.Context) error {
	log.Info("[relay] server stopping")
	err := s.Shutdown(ctx)
	s.sessionMgr.CloseAllSessions()

	s.mu.Lock()
	for _, r := range s.rooms {
		for _, m := range r.members {
			if m.leave != nil {
				m.leave.Stop()
			}
		}
	}
	s.rooms = make(map[string]*room)
	s.mu.Unlock()
	return err
}

func (s *Server) handleConnections() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cnt := s.sessionMgr.Len(); cnt >= s.maxConnLimit {
			w.WriteHeader(http.StatusServiceUnavailable)
			log.Warnf("[relay] StatusServiceUnavailable. over maxConnections(%d)", cnt)
			return
		}

		claims, err := auth.Parse(s.secret, s.issuer, requestToken(r))
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			log.Warnf("[relay] reject %s: %v", r.RemoteAddr, err)
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Errorf("[relay] upgrade error: %v", err)
			return
		}

		var limiter *rate.Limiter
		if s.rateLimit > 0 {
			limiter = rate.NewLimiter(s.rateLimit, max(s.rateBurst, 1))
		}
		peer := ltransport.Peer{ID: claims.Subject, Seat: claims.Seat}
		_ = NewSession(s, conn, s.sessionConf, claims.Match, peer, limiter)
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		rooms := len(s.rooms)
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(xgo.ToJSON(map[string]any{
			"status":   "ok",
			"sessions": s.sessionMgr.Len(),
			"rooms":    rooms,
		})))
	}
}

func requestToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// OnSessionOpen 加入对局. 同一节点重连时接替旧会话并保留加入顺序
func (s *Server) OnSessionOpen(sess *Session) {
	s.sessionMgr.Add(sess)

	var replaced *Session
	s.mu.Lock()
	r := s.rooms[sess.match]
	if r == nil {
		r = &room{id: sess.match}
		s.rooms[sess.match] = r
	}
	if m := r.find(sess.peer.ID); m != nil {
		if m.leave != nil {
			m.leave.Stop()
			m.leave = nil
		}
		replaced, m.sess, m.peer = m.sess, sess, sess.peer
	} else {
		r.members = append(r.members, &member{peer: sess.peer, sess: sess})
	}
	ms, targets := r.membership(), r.sessions("")
	s.mu.Unlock()

	if replaced != nil {
		log.Infof("[relay] match=%q peer=%q replaced session %s", sess.match, sess.peer.ID, replaced.ID())
		replaced.Close(true)
	}
	announce(targets, ms)
}

// OnSessionClose 断线后保留座位 leaveGrace, 超时才通知其他节点. 主机断线时立即通知新主机
func (s *Server) OnSessionClose(sess *Session) {
	s.sessionMgr.Delete(sess)

	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rooms[sess.match]
	if r == nil {
		return
	}
	m := r.find(sess.peer.ID)
	if m == nil || m.sess != sess {
		return
	}
	wasHost := r.host() == m
	m.sess = nil
	if s.leaveGrace <= 0 {
		s.removeLocked(r, m)
		return
	}
	m.leave = time.AfterFunc(s.leaveGrace, func() { s.expire(r.id, m) })
	if wasHost {
		// 主机断线立即换主, 座位仍保留
		go announce(r.sessions(""), r.membership())
	}
}

func (s *Server) expire(matchID string, m *member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rooms[matchID]
	if r == nil || r.find(m.peer.ID) != m || m.sess != nil {
		return
	}
	s.removeLocked(r, m)
}

func (s *Server) removeLocked(r *room, m *member) {
	r.remove(m)
	log.Infof("[relay] match=%q peer=%q left, members=%d", r.id, m.peer.ID, len(r.members))
	if len(r.members) == 0 {
		delete(s.rooms, r.id)
		return
	}
	go announce(r.sessions(""), r.membership())
}

func announce(targets []*Session, ms ltransport.Membership) {
	for _, sess := range targets {
		if err := sess.SendFrame(&Frame{Op: OpMembership, Members: &ms}); err != nil {
			log.Warnf("[relay] membership to %s: %v", sess.ID(), err)
		}
	}
}

// DispatchFrame 按帧类型转发, From 由中继按凭证填写
func (s *Server) DispatchFrame(sess *Session, f *Frame) error {
	if !sess.Allow() {
		return codes.ErrRateLimited
	}
	from := sess.peer
	out := &Frame{Op: OpDeliver, From: &from, Body: f.Body}

	switch f.Op {
	case OpToHost:
		s.mu.Lock()
		var target *Session
		if r := s.rooms[sess.match]; r != nil {
			if h := r.host(); h != nil {
				target = h.sess
			}
		}
		s.mu.Unlock()
		if target == nil {
			return codes.ErrNoHost
		}
		return target.SendFrame(out)

	case OpBroadcast:
		s.mu.Lock()
		var targets []*Session
		if r := s.rooms[sess.match]; r != nil {
			targets = r.sessions(from.ID)
		}
		s.mu.Unlock()
		var errs []error
		for _, t := range targets {
			errs = append(errs, t.SendFrame(out))
		}
		return errors.Join(errs...)

	default:
		log.Warnf("[relay] unexpected op %v from peer=%q", f.Op, from.ID)
		return nil
	}
}

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Length, Token")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
