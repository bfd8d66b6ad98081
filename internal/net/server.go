package net

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Server accepts TCP connections and starts a Session per connection.
type Server struct {
	listener   net.Listener
	nextID     atomic.Uint64
	dispatcher Dispatcher
	opts       SessionOptions
	onAccept   func(*Session)
	log        *zap.Logger

	mu       sync.Mutex
	sessions map[uint64]*Session
	closeCh  chan struct{}
	closing  sync.Once
}

func NewServer(bindAddr string, d Dispatcher, opts SessionOptions, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener:   ln,
		dispatcher: d,
		opts:       opts,
		log:        log,
		sessions:   make(map[uint64]*Session),
		closeCh:    make(chan struct{}),
	}, nil
}

// OnAccept sets a hook run for every new session before its goroutines start.
func (s *Server) OnAccept(fn func(*Session)) {
	s.onAccept = fn
}

// Serve accepts connections until ctx is done or Shutdown is called.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-s.closeCh:
		}
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.opts, s.log)
		s.track(sess)
		if s.onAccept != nil {
			s.onAccept(sess)
		}
		sess.Start(s.dispatcher)

		s.log.Info("client connected", zap.Uint64("session", id), zap.String("ip", sess.IP))
	}
}

func (s *Server) track(sess *Session) {
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	sess.OnClose(func(closed *Session) {
		s.mu.Lock()
		delete(s.sessions, closed.ID())
		s.mu.Unlock()
		s.log.Info("client disconnected", zap.Uint64("session", closed.ID()))
	})
}

// Count returns the number of open sessions.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown stops accepting and closes every open session.
func (s *Server) Shutdown() {
	s.closing.Do(func() {
		close(s.closeCh)
		s.listener.Close()

		s.mu.Lock()
		open := make([]*Session, 0, len(s.sessions))
		for _, sess := range s.sessions {
			open = append(open, sess)
		}
		s.mu.Unlock()
		for _, sess := range open {
			sess.Close()
		}
	})
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
