package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/playernet/internal/observability"
	"github.com/danmuck/playernet/internal/protocol"
	"github.com/danmuck/playernet/internal/protocol/frame"
	"github.com/danmuck/playernet/internal/protocol/packet"
	"github.com/eapache/queue"
	"github.com/rs/zerolog/log"
)

var (
	ErrMissingHost   = errors.New("network: host required")
	ErrAlreadyServed = errors.New("network: already serving")
)

const (
	ReasonClientDisconnect = "client disconnect"
	ReasonTimeout          = "timeout"
	ReasonServerShutdown   = "server shutdown"
	ReasonInternalError    = "internal server error"
)

// Handler receives the inbound messages of one session, one at a time.
type Handler interface {
	HandleInbound(env *protocol.Envelope)
}

// Host creates per-connection handlers and learns when sessions end.
type Host interface {
	OnOpen(sessionID string, remote net.Addr) (Handler, error)
	OnClose(sessionID string, reason string)
}

type Config struct {
	ListenAddr    string
	FlushInterval time.Duration
	// ReadTimeout closes sessions idle for longer; zero disables it.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Limits       frame.Limits
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:    ":19132",
		FlushInterval: 50 * time.Millisecond,
		ReadTimeout:   0,
		WriteTimeout:  5 * time.Second,
		Limits:        frame.DefaultLimits(),
	}
}

func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if strings.TrimSpace(c.ListenAddr) == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = def.FlushInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.Limits.MaxPayloadBytes == 0 {
		c.Limits = def.Limits
	}
	return c
}

// Interface is the TCP transport for game sessions. Each connection is
// read on its own goroutine; outbound frames wait in a per-session outbox
// until the next flush tick unless sent immediately.
type Interface struct {
	cfg  Config
	host Host

	mu      sync.RWMutex
	ln      net.Listener
	conns   map[string]*conn
	serving atomic.Bool
	nextID  atomic.Uint64
	wg      sync.WaitGroup
}

type conn struct {
	id string
	nc net.Conn

	mu     sync.Mutex
	outbox *queue.Queue
	seq    uint64
	closed bool
}

func New(cfg Config, host Host) (*Interface, error) {
	if host == nil {
		return nil, ErrMissingHost
	}
	return &Interface{
		cfg:   cfg.WithDefaults(),
		host:  host,
		conns: make(map[string]*conn),
	}, nil
}

// Listen binds the listen address. Serve calls it when needed.
func (i *Interface) Listen() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", strings.TrimSpace(i.cfg.ListenAddr))
	if err != nil {
		return fmt.Errorf("network: listen %s: %w", i.cfg.ListenAddr, err)
	}
	i.ln = ln
	return nil
}

func (i *Interface) Addr() net.Addr {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.ln == nil {
		return nil
	}
	return i.ln.Addr()
}

// acceptBackoff paces retries after temporary accept failures.
var acceptBackoff = BackoffConfig{
	InitialDelay: 5 * time.Millisecond,
	Multiplier:   2.0,
	MaxDelay:     time.Second,
}

// Serve accepts connections until ctx is done, then closes every session.
// A permanent accept failure stops serving and is returned; temporary ones
// are retried.
func (i *Interface) Serve(ctx context.Context) error {
	if !i.serving.CompareAndSwap(false, true) {
		return ErrAlreadyServed
	}
	if err := i.Listen(); err != nil {
		return err
	}
	i.mu.RLock()
	ln := i.ln
	i.mu.RUnlock()
	log.Info().Str("addr", ln.Addr().String()).Msg("network.Interface listening")

	serveCtx, stop := context.WithCancel(ctx)
	go func() {
		<-serveCtx.Done()
		_ = ln.Close()
	}()
	flushDone := make(chan struct{})
	go i.flushLoop(serveCtx, flushDone)

	defer func() {
		stop()
		<-flushDone
		i.closeAll(ReasonServerShutdown)
		i.wg.Wait()
	}()

	failures := 0
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isTemporary(err) {
				failures++
				delay := NextBackoffDelay(acceptBackoff, failures, nil)
				log.Warn().Err(err).Dur("retry_in", delay).Msg("network.Interface accept failed")
				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
					return nil
				}
			}
			log.Error().Err(err).Msg("network.Interface accept stopped")
			return fmt.Errorf("network: accept: %w", err)
		}
		failures = 0
		i.accept(nc)
	}
}

func isTemporary(err error) bool {
	var te interface{ Temporary() bool }
	return errors.As(err, &te) && te.Temporary()
}

func (i *Interface) accept(nc net.Conn) {
	id := fmt.Sprintf("s-%d", i.nextID.Add(1))
	c := &conn{id: id, nc: nc, outbox: queue.New()}

	i.mu.Lock()
	i.conns[id] = c
	i.mu.Unlock()

	h, err := i.host.OnOpen(id, nc.RemoteAddr())
	if err != nil {
		log.Warn().Err(err).Str("session", id).Msg("network.Interface open rejected")
		i.mu.Lock()
		delete(i.conns, id)
		i.mu.Unlock()
		_ = nc.Close()
		return
	}
	log.Info().Str("session", id).Str("remote", nc.RemoteAddr().String()).Msg("network.Interface session opened")

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		i.readLoop(c, h)
	}()
}

func (i *Interface) readLoop(c *conn, h Handler) {
	reason := ReasonClientDisconnect
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("session", c.id).Interface("panic", r).Msg("network.Interface handler panic")
			reason = ReasonInternalError
		}
		i.closeConn(c, reason)
	}()

	for {
		if i.cfg.ReadTimeout > 0 {
			_ = c.nc.SetReadDeadline(time.Now().Add(i.cfg.ReadTimeout))
		}
		f, err := frame.ReadFrame(c.nc, i.cfg.Limits)
		if err != nil {
			reason = readFailureReason(err)
			if c.isClosed() {
				return
			}
			if !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Str("session", c.id).Msg("network.Interface read failed")
			}
			return
		}
		kind, ok := protocol.KindFromWireID(f.Header.Kind)
		if !ok {
			log.Debug().
				Str("session", c.id).
				Uint8("wire_id", f.Header.Kind).
				Msg("network.Interface unknown message id")
			continue
		}
		h.HandleInbound(protocol.NewEnvelope(kind, f.Payload))
	}
}

func readFailureReason(err error) string {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonTimeout
	}
	if errors.Is(err, io.EOF) {
		return ReasonClientDisconnect
	}
	return err.Error()
}

// Put queues env for sessionID. Immediate messages are written before Put
// returns together with anything queued ahead of them.
func (i *Interface) Put(sessionID string, env *protocol.Envelope, skipInterception, immediate bool) {
	c, ok := i.lookup(sessionID)
	if !ok {
		log.Debug().Str("session", sessionID).Str("kind", env.Kind.String()).Msg("network.Interface put to unknown session")
		return
	}
	observability.RecordTransportPut(env.Kind.String(), immediate, skipInterception)

	var flags uint8
	if immediate {
		flags |= frame.FlagImmediate
	}
	payload := packet.Payload(env)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.seq++
	c.outbox.Add(frame.Frame{
		Header:  frame.Header{Sequence: c.seq, Kind: env.Kind.WireID(), Flags: flags},
		Payload: payload,
	})
	var err error
	if immediate {
		err = i.flushLocked(c)
	}
	c.mu.Unlock()

	if err != nil {
		i.closeConn(c, err.Error())
	}
}

// Close flushes and closes the session's connection. Repeated calls and
// unknown sessions are ignored.
func (i *Interface) Close(sessionID string, reason string) {
	c, ok := i.lookup(sessionID)
	if !ok {
		return
	}
	i.closeConn(c, reason)
}

// Sessions lists open session ids in order.
func (i *Interface) Sessions() []string {
	i.mu.RLock()
	out := make([]string, 0, len(i.conns))
	for id := range i.conns {
		out = append(out, id)
	}
	i.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Pending reports the number of queued frames for sessionID.
func (i *Interface) Pending(sessionID string) int {
	c, ok := i.lookup(sessionID)
	if !ok {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outbox.Length()
}

func (i *Interface) lookup(sessionID string) (*conn, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	c, ok := i.conns[sessionID]
	return c, ok
}

func (i *Interface) closeConn(c *conn, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if err := i.flushLocked(c); err != nil {
		log.Debug().Err(err).Str("session", c.id).Msg("network.Interface final flush failed")
	}
	c.closed = true
	_ = c.nc.Close()
	c.mu.Unlock()

	i.mu.Lock()
	delete(i.conns, c.id)
	i.mu.Unlock()

	log.Info().Str("session", c.id).Str("reason", reason).Msg("network.Interface session closed")
	i.host.OnClose(c.id, reason)
}

func (i *Interface) closeAll(reason string) {
	i.mu.RLock()
	conns := make([]*conn, 0, len(i.conns))
	for _, c := range i.conns {
		conns = append(conns, c)
	}
	i.mu.RUnlock()
	for _, c := range conns {
		i.closeConn(c, reason)
	}
}

func (i *Interface) flushLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(i.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.flushAll()
		}
	}
}

func (i *Interface) flushAll() {
	i.mu.RLock()
	conns := make([]*conn, 0, len(i.conns))
	for _, c := range i.conns {
		conns = append(conns, c)
	}
	i.mu.RUnlock()

	for _, c := range conns {
		c.mu.Lock()
		err := i.flushLocked(c)
		c.mu.Unlock()
		if err != nil {
			i.closeConn(c, err.Error())
		}
	}
}

// flushLocked writes queued frames in order. A frame stays queued until it
// is written. c.mu must be held.
func (i *Interface) flushLocked(c *conn) error {
	if c.closed {
		return nil
	}
	for c.outbox.Length() > 0 {
		f := c.outbox.Peek().(frame.Frame)
		_ = c.nc.SetWriteDeadline(time.Now().Add(i.cfg.WriteTimeout))
		if err := frame.WriteFrame(c.nc, f, i.cfg.Limits); err != nil {
			if errors.Is(err, frame.ErrPayloadTooLarge) {
				log.Warn().Str("session", c.id).Uint8("wire_id", f.Header.Kind).Msg("network.Interface dropped oversized frame")
				c.outbox.Remove()
				continue
			}
			return fmt.Errorf("network: write %s: %w", c.id, err)
		}
		c.outbox.Remove()
	}
	return nil
}

func (c *conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
