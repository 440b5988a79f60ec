package websocket

import (
	"sync"
	"sync/atomic"

	"github.com/go-kratos/kratos/v2/log"
)

type SessionManager struct {
	count    int32
	sessions sync.Map
}

func NewSessionManager() *SessionManager {
	return &SessionManager{}
}

func (s *SessionManager) Len() int32 {
	return atomic.LoadInt32(&s.count)
}

func (s *SessionManager) Add(session *Session) {
	if _, loaded := s.sessions.LoadOrStore(session.ID(), session); !loaded {
		count := atomic.AddInt32(&s.count, 1)
		log.Infof("join. match=%q peer=%q seat=%d key=%q sessions=%d",
			session.match, session.peer.ID, session.peer.Seat, session.ID(), count)
	}
}

func (s *SessionManager) Delete(session *Session) {
	if _, loaded := s.sessions.LoadAndDelete(session.ID()); loaded {
		count := atomic.AddInt32(&s.count, -1)
		log.Infof("disconnect. match=%q peer=%q key=%q sessions=%d", session.match, session.peer.ID, session.ID(), count)
	}
}

func (s *SessionManager) Get(sessionID string) *Session {
	v, ok := s.sessions.Load(sessionID)
	if !ok {
		return nil
	}
	return v.(*Session)
}

func (s *SessionManager) Range(fn func(*Session)) {
	s.sessions.Range(func(k, v any) bool {
		fn(v.(*Session))
		return true
	})
}

func (s *SessionManager) CloseAllSessions() {
	s.Range(func(sess *Session) { sess.Close(true) })
}
