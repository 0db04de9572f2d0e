package platform

import (
	_ "unsafe" // for go:linkname

	"go.uber.org/atomic"
	"golang.org/x/sys/cpu"
)

//go:linkname runtime_procPin sync.runtime_procPin
func runtime_procPin() int

//go:linkname runtime_procUnpin sync.runtime_procUnpin
func runtime_procUnpin()

// shardCell is one core-sharded signed counter, isolated on its own cache
// line so that concurrent writers on different Ps never contend.
type shardCell struct {
	v atomic.Int64
	_ cpu.CacheLinePad
}

// aggregateCell is the single per-client drain target, likewise cache-line
// isolated since it is contended by every shard that crosses threshold plus
// every reader.
type aggregateCell struct {
	v atomic.Int64
	_ cpu.CacheLinePad
}

// clientTally is the per-client tally described in §4.2: shardCount
// core-sharded cells plus one aggregate, plus the estimate-update threshold
// that gates when a shard drains into the aggregate.
type clientTally struct {
	shards    []shardCell
	aggregate aggregateCell
	threshold atomic.Uint64
}

// TallyTable holds one clientTally per client slot, sized to MaxClients at
// construction so that registration never allocates.
//
// The design is core-sharded (§4.2(a)): the shard for a given call is
// selected by the calling goroutine's current P, obtained the same way
// sync.Pool obtains it, via runtime_procPin/runtime_procUnpin. This choice
// means routing never needs to notify the tally when a thread becomes
// active for a client (the thread-sharded alternative's "threadUp" hook
// exists only to lazily materialize per-thread shard storage; core-sharded
// storage is already fully materialized for every client at construction).
type TallyTable struct {
	shardCount int
	clients    []clientTally
}

// NewTallyTable creates a table with shardCount shards per client. A
// shardCount <= 0 is treated as 1 (Facade itself defaults to GOMAXPROCS).
func NewTallyTable(shardCount int) *TallyTable {
	if shardCount <= 0 {
		shardCount = 1
	}
	t := &TallyTable{
		shardCount: shardCount,
		clients:    make([]clientTally, MaxClients),
	}
	for i := range t.clients {
		t.clients[i].shards = make([]shardCell, shardCount)
		t.clients[i].threshold.Store(DefaultEstimateThreshold)
	}
	return t
}

// clientRegistered zeros the aggregate and every shard for index. Called by
// the registry under its writer lock whenever a slot transitions Free→Live,
// so a reused arena's leftover tally never leaks into its next tenant.
func (t *TallyTable) clientRegistered(index uint32) {
	c := &t.clients[index]
	c.aggregate.v.Store(0)
	for i := range c.shards {
		c.shards[i].v.Store(0)
	}
}

// setThreshold sets the estimate-update threshold for index.
func (t *TallyTable) setThreshold(index uint32, threshold uint64) {
	t.clients[index].threshold.Store(threshold)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp0(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

// updateShard applies delta to the shard selected by the caller's current P
// and drains it into the aggregate if its magnitude now exceeds threshold.
func (t *TallyTable) updateShard(index uint32, delta int64) {
	c := &t.clients[index]

	pid := runtime_procPin()
	runtime_procUnpin()
	shard := &c.shards[pid%t.shardCount]

	v := shard.v.Add(delta)
	if threshold := int64(c.threshold.Load()); abs64(v) > threshold {
		taken := shard.v.Swap(0)
		c.aggregate.v.Add(taken)
	}
}

// memAllocated records size bytes allocated to client index. A no-op for
// NoClientIndex (untracked allocations, per §4.5's "registered client not
// current" rule).
func (t *TallyTable) memAllocated(index uint32, size uint64) {
	if index == NoClientIndex {
		return
	}
	t.updateShard(index, int64(size))
}

// memDeallocated is memAllocated's inverse.
func (t *TallyTable) memDeallocated(index uint32, size uint64) {
	if index == NoClientIndex {
		return
	}
	t.updateShard(index, -int64(size))
}

// getEstimatedAllocated reads only the aggregate: lock-free, wait-free,
// O(1), within threshold × shardCount of the precise figure.
func (t *TallyTable) getEstimatedAllocated(index uint32) uint64 {
	if index == NoClientIndex {
		return 0
	}
	return clamp0(t.clients[index].aggregate.v.Load())
}

// getPreciseAllocated drains every shard for index into the aggregate and
// returns the result. O(shards); safe to call concurrently with writers.
func (t *TallyTable) getPreciseAllocated(index uint32) uint64 {
	if index == NoClientIndex {
		return 0
	}
	c := &t.clients[index]
	var sum int64
	for i := range c.shards {
		sum += c.shards[i].v.Swap(0)
	}
	c.aggregate.v.Add(sum)
	return clamp0(c.aggregate.v.Load())
}
