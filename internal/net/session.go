package net

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dolgo/server/internal/net/packet"
	"go.uber.org/zap"
)

// lastPacketCount is how many recent packets each session keeps for diagnostics.
const lastPacketCount = 16

// Dispatcher routes a decoded client frame (opcode + body).
type Dispatcher interface {
	Dispatch(sess packet.Session, raw []byte) error
}

// PacketRecord is one entry of the recent-packet ring.
type PacketRecord struct {
	Inbound bool
	At      time.Time
	Data    []byte
}

// Session represents a single client connection. The reader goroutine decodes
// and dispatches frames inline; the writer goroutine drains OutQueue.
// World state is never touched here, handlers defer it onto region goroutines.
type Session struct {
	id   uint64
	conn net.Conn

	status  atomic.Int32 // packet.Status
	version atomic.Uint32

	OutQueue chan []byte

	IP          string
	AccountName string // written once at login, on the reader goroutine

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	hookMu   sync.Mutex
	onClose  []func(*Session)
	hooksRan bool

	ringMu sync.Mutex
	ring   [lastPacketCount]PacketRecord
	ringN  int

	// Per-second packet rate limiter (reader goroutine only)
	pktPerSec  int
	pktCount   int
	pktResetAt int64

	writeTimeout time.Duration
	readTimeout  time.Duration
	dumpOnFail   bool

	log *zap.Logger
}

// SessionOptions carries the per-connection limits from config.
type SessionOptions struct {
	OutQueueSize     int
	PacketsPerSecond int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	DumpOnFailure    bool // log the last packets when a frame fails its checksum
}

func NewSession(conn net.Conn, id uint64, opts SessionOptions, log *zap.Logger) *Session {
	if opts.OutQueueSize <= 0 {
		opts.OutQueueSize = 256
	}
	s := &Session{
		id:           id,
		conn:         conn,
		OutQueue:     make(chan []byte, opts.OutQueueSize),
		IP:           conn.RemoteAddr().String(),
		closeCh:      make(chan struct{}),
		pktPerSec:    opts.PacketsPerSecond,
		readTimeout:  opts.ReadTimeout,
		writeTimeout: opts.WriteTimeout,
		dumpOnFail:   opts.DumpOnFailure,
		log:          log.With(zap.Uint64("session", id)),
	}
	s.status.Store(int32(packet.StatusConnecting))
	s.version.Store(uint32(packet.Version168))
	return s
}

func (s *Session) ID() uint64 { return s.id }

func (s *Session) Status() packet.Status {
	return packet.Status(s.status.Load())
}

func (s *Session) SetStatus(st packet.Status) {
	s.status.Store(int32(st))
}

// Version returns the client version announced at login.
func (s *Session) Version() packet.Version {
	return packet.Version(s.version.Load())
}

func (s *Session) SetVersion(v packet.Version) {
	s.version.Store(uint32(v))
}

// Log returns the session-scoped logger.
func (s *Session) Log() *zap.Logger { return s.log }

// OnClose registers fn to run once when the session closes. On a session
// that is already closed fn runs right away.
func (s *Session) OnClose(fn func(*Session)) {
	s.hookMu.Lock()
	if s.hooksRan {
		s.hookMu.Unlock()
		fn(s)
		return
	}
	s.onClose = append(s.onClose, fn)
	s.hookMu.Unlock()
}

// Start launches the reader and writer goroutines.
func (s *Session) Start(d Dispatcher) {
	go s.readLoop(d)
	go s.writeLoop()
}

// Send queues a server packet. Safe from any goroutine. A full queue means
// the client stopped reading, so the session is dropped.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	s.record(false, data)
	select {
	case s.OutQueue <- data:
	default:
		s.log.Warn("output queue full, dropping slow connection")
		s.Close()
	}
}

// Close shuts the session down and runs the close hooks once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetStatus(packet.StatusLinkdead)
		close(s.closeCh)
		s.conn.Close()

		s.hookMu.Lock()
		hooks := s.onClose
		s.onClose = nil
		s.hooksRan = true
		s.hookMu.Unlock()
		for _, fn := range hooks {
			fn(s)
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.closeCh
}

// LastPackets returns the recent packets, oldest first.
func (s *Session) LastPackets() []PacketRecord {
	s.ringMu.Lock()
	defer s.ringMu.Unlock()
	n := s.ringN
	if n > lastPacketCount {
		n = lastPacketCount
	}
	out := make([]PacketRecord, 0, n)
	for i := s.ringN - n; i < s.ringN; i++ {
		out = append(out, s.ring[i%lastPacketCount])
	}
	return out
}

func (s *Session) record(inbound bool, data []byte) {
	s.ringMu.Lock()
	s.ring[s.ringN%lastPacketCount] = PacketRecord{Inbound: inbound, At: time.Now(), Data: data}
	s.ringN++
	s.ringMu.Unlock()
}

// readLoop reads frames from the connection and dispatches them inline.
// Dispatch errors were already logged by the registry.
func (s *Session) readLoop(d Dispatcher) {
	defer s.Close()

	for {
		if s.readTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		_, raw, err := ReadFrame(s.conn)
		if err != nil {
			if errors.Is(err, ErrBadChecksum) {
				s.log.Warn("bad packet checksum, disconnecting", zap.Error(err))
				if s.dumpOnFail {
					s.dumpLastPackets()
				}
				return
			}
			if !s.closed.Load() && !errors.Is(err, io.EOF) {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		if s.pktPerSec > 0 {
			now := time.Now().Unix()
			if now != s.pktResetAt {
				s.pktCount = 0
				s.pktResetAt = now
			}
			s.pktCount++
			if s.pktCount > s.pktPerSec {
				s.log.Warn("packet rate exceeded, disconnecting", zap.Int("pps", s.pktCount))
				return
			}
		}

		s.record(true, raw)
		_ = d.Dispatch(s, raw)
	}
}

// writeLoop drains OutQueue to the connection.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			if !s.writeOnePacket(data) {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeOnePacket(data []byte) bool {
	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := WriteFrame(s.conn, data); err != nil {
		if errors.Is(err, ErrOversize) {
			// The client crashes on these; drop the packet, keep the connection.
			s.log.Error("oversize packet discarded", zap.Error(err))
			return true
		}
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}

func (s *Session) dumpLastPackets() {
	for _, p := range s.LastPackets() {
		dir := "<=="
		if p.Inbound {
			dir = "==>"
		}
		s.log.Info("last packet",
			zap.String("dir", dir),
			zap.Time("at", p.At),
			zap.String("data", fmt.Sprintf("% X", p.Data)),
		)
	}
}
