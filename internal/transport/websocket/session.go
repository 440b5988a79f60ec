package websocket

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/yola1107/ludo-arbiter/internal/transport"
	"github.com/yola1107/ludo-arbiter/library/xgo"
)

var (
	errSessionClosed = errors.New("session: closed send")
	errSendNilFrame  = errors.New("session: send nil frame")
)

type iHandler interface {
	// OnSessionOpen 会话建立后回调, 例如加入对局
	OnSessionOpen(sess *Session)
	// OnSessionClose 会话断开时回调
	OnSessionClose(sess *Session)
	// DispatchFrame 处理心跳以外的帧
	DispatchFrame(sess *Session, f *Frame) error
}

type SessionConfig struct {
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	ReadDeadline   time.Duration
	SendChanSize   int
	MaxMessageSize int64
}

type Session struct {
	id         string
	match      string
	peer       transport.Peer
	h          iHandler
	connMu     sync.Mutex
	conn       *websocket.Conn
	config     *SessionConfig
	limiter    *rate.Limiter // nil 不限速
	sendChan   chan []byte
	closed     atomic.Bool
	lastActive atomic.Value // time.Time
	ctx        context.Context
	cancel     context.CancelFunc
	sendMu     sync.Mutex
}

func NewSession(h iHandler, conn *websocket.Conn, config *SessionConfig, match string, peer transport.Peer, limiter *rate.Limiter) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       uuid.New().String(),
		match:    match,
		peer:     peer,
		h:        h,
		conn:     conn,
		config:   config,
		limiter:  limiter,
		sendChan: make(chan []byte, config.SendChanSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	if config.MaxMessageSize > 0 {
		conn.SetReadLimit(config.MaxMessageSize)
	}
	s.lastActive.Store(time.Now())
	s.h.OnSessionOpen(s)
	go s.readPump()
	go s.writePump()
	go s.heartbeat()
	return s
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Match() string        { return s.match }
func (s *Session) Peer() transport.Peer { return s.peer }
func (s *Session) Closed() bool         { return s.closed.Load() }

func (s *Session) GetRemoteIP() string {
	return s.conn.RemoteAddr().String()
}

func (s *Session) LastActive() time.Time {
	return s.lastActive.Load().(time.Time)
}

// Allow 限速器检查
func (s *Session) Allow() bool {
	return s.limiter == nil || s.limiter.Allow()
}

func (s *Session) Send(message []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.Closed() {
		return errSessionClosed
	}
	select {
	case s.sendChan <- message:
		return nil
	case <-s.ctx.Done():
		return errSessionClosed
	}
}

func (s *Session) SendFrame(f *Frame) error {
	if f == nil {
		return errSendNilFrame
	}
	data, err := encodeFrame(f)
	if err != nil {
		return err
	}
	return s.Send(data)
}

func (s *Session) readPump() {
	defer xgo.RecoverFromError(nil)
	defer s.Close(false)

	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.config.ReadDeadline)); err != nil {
			log.Errorf("sessionID=%q set read deadline error: %v", s.id, err)
			return
		}

		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warnf("sessionID=%q unexpected close: %v", s.id, err)
			}
			return
		}

		s.lastActive.Store(time.Now())

		switch msgType {
		case websocket.BinaryMessage:
			s.dispatch(data)
		case websocket.CloseMessage:
			return
		default:
			log.Warnf("sessionID=%q unsupported message type: %d", s.id, msgType)
		}
	}
}

func (s *Session) dispatch(data []byte) {
	f, err := decodeFrame(data)
	if err != nil {
		log.Warnf("sessionID=%q bad frame: %v", s.id, err)
		return
	}
	switch f.Op {
	case OpPing:
		_ = s.SendFrame(&Frame{Op: OpPong})
	case OpPong:
	default:
		if err := s.h.DispatchFrame(s, f); err != nil {
			log.Warnf("sessionID=%q peer=%s %v: %v", s.id, s.peer.ID, f.Op, err)
		}
	}
}

func (s *Session) writePump() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-s.sendChan:
			if !ok {
				return
			}
			if err := s.writeBinaryMessage(msg); err != nil {
				if errors.Is(err, errSessionClosed) || strings.Contains(err.Error(), "close sent") {
					log.Infof("sessionID=%q write aborted, reason: %v", s.id, err)
				} else {
					log.Errorf("sessionID=%q write error: %v", s.id, err)
				}
				s.Close(true)
				return
			}
		}
	}
}

func (s *Session) heartbeat() {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-ticker.C:
			if s.Closed() {
				return
			}
			if time.Since(s.LastActive()) > s.config.ReadDeadline {
				log.Warnf("sessionID=%q heartbeat timeout", s.id)
				s.Close(true)
				return
			}
			_ = s.SendFrame(&Frame{Op: OpPing})
		}
	}
}

func (s *Session) Close(force bool) bool {
	if !s.closed.CompareAndSwap(false, true) {
		return false
	}

	s.closeNotify(force)

	s.cancel()

	s.sendMu.Lock()
	close(s.sendChan)
	s.sendMu.Unlock()

	s.connMu.Lock()
	_ = s.conn.Close()
	s.connMu.Unlock()

	s.h.OnSessionClose(s)
	return true
}

func (s *Session) closeNotify(force bool) {
	s.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, closeReason(s, force)))
}

func closeReason(s *Session, force bool) string {
	if !force {
		return "Normal Closure"
	}
	if s != nil && s.config != nil && time.Since(s.LastActive()) > s.config.ReadDeadline {
		return "Force Closure (Heartbeat timeout)"
	}
	return "Force Closure"
}

func (s *Session) writeControl(msgType int, data []byte) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	_ = s.conn.WriteControl(msgType, data, time.Now().Add(s.config.WriteTimeout))
}

func (s *Session) writeBinaryMessage(data []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.Closed() {
		return errSessionClosed
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}
