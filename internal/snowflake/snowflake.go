// Package snowflake generates roughly time-ordered 64-bit IDs.
//
// An ID packs, from the most significant bit down: milliseconds since Epoch,
// a 5-bit cluster ID, a 5-bit worker ID and an 8-bit sequence number.
package snowflake

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	SequenceBits = 8
	WorkerBits   = 5
	ClusterBits  = 5

	MaxSequence = 1<<SequenceBits - 1
	MaxWorker   = 1<<WorkerBits - 1
	MaxCluster  = 1<<ClusterBits - 1

	workerShift    = SequenceBits
	clusterShift   = SequenceBits + WorkerBits
	timestampShift = SequenceBits + WorkerBits + ClusterBits
)

// Epoch is the zero point of ID timestamps, 2023-11-14T22:13:20Z.
var Epoch = time.UnixMilli(1_700_000_000_000)

// ID is a snowflake identifier.
type ID uint64

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Time returns when the ID was generated, at millisecond precision.
func (id ID) Time() time.Time {
	return Epoch.Add(time.Duration(id>>timestampShift) * time.Millisecond)
}

func (id ID) Cluster() uint8  { return uint8(id>>clusterShift) & MaxCluster }
func (id ID) Worker() uint8   { return uint8(id>>workerShift) & MaxWorker }
func (id ID) Sequence() uint8 { return uint8(id & MaxSequence) }

// Parse reads an ID from its decimal form.
func Parse(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse snowflake %q: %w", s, err)
	}
	return ID(v), nil
}

// Generator hands out IDs for one cluster/worker pair. It is safe for
// concurrent use; two generators must not share a pair.
type Generator struct {
	mu       sync.Mutex
	cluster  uint64
	worker   uint64
	sequence uint64
	last     int64
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New creates a generator. cluster and worker must fit their bit widths.
func New(cluster, worker uint8, opts ...Option) (*Generator, error) {
	if cluster > MaxCluster {
		return nil, fmt.Errorf("cluster id %d exceeds max %d", cluster, MaxCluster)
	}
	if worker > MaxWorker {
		return nil, fmt.Errorf("worker id %d exceeds max %d", worker, MaxWorker)
	}
	g := &Generator{
		cluster: uint64(cluster),
		worker:  uint64(worker),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Generator) millis() int64 {
	return g.now().Sub(Epoch).Milliseconds()
}

// waitUntil blocks until the clock reaches target and returns the new reading.
func (g *Generator) waitUntil(target int64) int64 {
	ts := g.millis()
	for ts < target {
		time.Sleep(100 * time.Microsecond)
		ts = g.millis()
	}
	return ts
}

// Next returns a new ID. When the clock steps backwards, Next waits for it to
// catch up rather than reuse a timestamp.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.millis()
	if ts < g.last {
		ts = g.waitUntil(g.last)
	}

	if ts == g.last {
		if g.sequence >= MaxSequence {
			ts = g.waitUntil(g.last + 1)
			g.sequence = 0
		} else {
			g.sequence++
		}
	} else {
		g.sequence = 0
	}
	g.last = ts

	return ID(uint64(ts)<<timestampShift | g.cluster<<clusterShift | g.worker<<workerShift | g.sequence)
}

// NextString returns Next in decimal form, matching the ID generator option of
// the stores.
func (g *Generator) NextString() string {
	return g.Next().String()
}
