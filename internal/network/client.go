package network

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/danmuck/playernet/internal/protocol"
	"github.com/danmuck/playernet/internal/protocol/frame"
	"github.com/danmuck/playernet/internal/protocol/packet"
	"github.com/rs/zerolog/log"
)

var ErrUnknownWireID = errors.New("network: unknown wire id")

type DialConfig struct {
	// Attempts bounds dial retries; values below one mean a single try.
	Attempts int
	Backoff  BackoffConfig
	Timeout  time.Duration
	Limits   frame.Limits
}

func DefaultDialConfig() DialConfig {
	return DialConfig{
		Attempts: 3,
		Backoff:  DefaultBackoff(),
		Timeout:  5 * time.Second,
		Limits:   frame.DefaultLimits(),
	}
}

// Client is the connecting side of a session, used by tools and tests.
type Client struct {
	nc     net.Conn
	limits frame.Limits

	mu  sync.Mutex
	seq uint64
}

// Dial connects to addr, retrying with backoff until attempts run out or
// ctx is done.
func Dial(ctx context.Context, addr string, cfg DialConfig) (*Client, error) {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Limits.MaxPayloadBytes == 0 {
		cfg.Limits = frame.DefaultLimits()
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dialer := net.Dialer{Timeout: cfg.Timeout}

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		nc, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return &Client{nc: nc, limits: cfg.Limits}, nil
		}
		lastErr = err
		if attempt == cfg.Attempts {
			break
		}
		delay := NextBackoffDelay(cfg.Backoff, attempt, rng)
		log.Debug().Err(err).Int("attempt", attempt).Dur("delay", delay).Str("addr", addr).Msg("network.Dial retry")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("network: dial %s: %w", addr, lastErr)
}

func (c *Client) Send(body packet.Body) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return frame.WriteFrame(c.nc, frame.Frame{
		Header:  frame.Header{Sequence: c.seq, Kind: body.Kind().WireID()},
		Payload: packet.Encode(body),
	}, c.limits)
}

// Receive reads the next message and decodes its body. Bodies that fail to
// decode are returned with the error so callers can still inspect the kind.
func (c *Client) Receive() (*protocol.Envelope, error) {
	f, err := frame.ReadFrame(c.nc, c.limits)
	if err != nil {
		return nil, err
	}
	kind, ok := protocol.KindFromWireID(f.Header.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownWireID, f.Header.Kind)
	}
	env := protocol.NewEnvelope(kind, f.Payload)
	return env, packet.Decode(env)
}

func (c *Client) SetReadDeadline(t time.Time) error {
	return c.nc.SetReadDeadline(t)
}

func (c *Client) LocalAddr() net.Addr {
	return c.nc.LocalAddr()
}

func (c *Client) Close() error {
	return c.nc.Close()
}
