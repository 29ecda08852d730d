package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/danmuck/playernet/internal/protocol"
	"github.com/rs/zerolog"
)

// Timings records packet timing scopes into the packet duration histogram.
// Keys have the form "<direction>:<kind>". Scopes with the same key nest:
// Stop closes the most recent Start.
type Timings struct {
	mu     sync.Mutex
	open   map[string][]time.Time
	now    func() time.Time
	record func(direction, kind string, d time.Duration)
}

func NewTimings() *Timings {
	return &Timings{
		open:   make(map[string][]time.Time),
		now:    time.Now,
		record: RecordPacketDuration,
	}
}

func (t *Timings) Start(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open[key] = append(t.open[key], t.now())
}

// Stop without a matching Start is ignored.
func (t *Timings) Stop(key string) {
	t.mu.Lock()
	stack := t.open[key]
	if len(stack) == 0 {
		t.mu.Unlock()
		return
	}
	started := stack[len(stack)-1]
	if len(stack) == 1 {
		delete(t.open, key)
	} else {
		t.open[key] = stack[:len(stack)-1]
	}
	elapsed := t.now().Sub(started)
	t.mu.Unlock()

	direction, kind, _ := strings.Cut(key, ":")
	t.record(direction, kind, elapsed)
}

// Open returns the number of unfinished scopes across all keys.
func (t *Timings) Open() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, stack := range t.open {
		n += len(stack)
	}
	return n
}

// Diagnostics writes session diagnostics to a zerolog logger at debug level.
type Diagnostics struct {
	logger zerolog.Logger
	node   string
}

func NewDiagnostics(logger zerolog.Logger, node, sessionID string) *Diagnostics {
	return &Diagnostics{
		logger: logger.With().Str("session", sessionID).Logger(),
		node:   node,
	}
}

func (d *Diagnostics) Debug(msg string) {
	RecordDiagnostic(d.node)
	d.logger.Debug().Msg(msg)
}

// Outcomes feeds per-packet outcomes into the packet outcome counter.
type Outcomes struct{}

func (Outcomes) RecordOutcome(dir protocol.Direction, kind protocol.MessageKind, outcome string) {
	RecordPacketOutcome(dir.String(), kind.String(), outcome)
}
