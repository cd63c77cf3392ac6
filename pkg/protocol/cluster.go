package protocol

import (
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// cluster is the in-process stand-in for the network/RPC substrate
// that spec.md §1 names as an external collaborator ("authenticated
// point-to-point channels ... plus barrier/collective primitives").
// Every Replicated3 engine sharing a cluster can Exchange exactly one
// CBOR-encoded message per logical round; Exchange blocks until all n
// parties have submitted for the current round, mirroring the
// teacher's MultiHandler round-barrier ("only finalize if we have
// received all messages").
type cluster struct {
	n   int
	mu  sync.Mutex
	cu  *roundBarrier
	box map[[2]int]chan []byte
}

type roundBarrier struct {
	mu       sync.Mutex
	cond     *sync.Cond
	data     [][]byte
	arrived  int
	capacity int
}

func newCluster(n int) *cluster {
	return &cluster{n: n, box: make(map[[2]int]chan []byte)}
}

// mailbox returns (creating if necessary) the buffered channel used
// for every message sent from `from` to `to`. Point-to-point delivery
// is the primitive the dealer/resharing rounds need (a message visible
// only to its one intended recipient), distinct from exchange's
// all-to-all barrier.
func (c *cluster) mailbox(from, to int) chan []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := [2]int{from, to}
	ch, ok := c.box[key]
	if !ok {
		ch = make(chan []byte, 8)
		c.box[key] = ch
	}
	return ch
}

// send delivers payload from party `from` to party `to`; it never
// blocks as long as the mailbox buffer (8 messages) isn't exhausted.
func (c *cluster) send(from, to int, payload []byte) {
	c.mailbox(from, to) <- payload
}

// recv blocks until a message addressed from `from` to `to` arrives.
func (c *cluster) recv(from, to int) []byte {
	return <-c.mailbox(from, to)
}

// exchange submits payload for partyIdx and blocks until every one of
// the n parties has submitted for the same logical round, then
// returns every party's payload in slot order.
func (c *cluster) exchange(partyIdx int, payload []byte) [][]byte {
	c.mu.Lock()
	b := c.cu
	if b == nil {
		b = &roundBarrier{data: make([][]byte, c.n), capacity: c.n}
		b.cond = sync.NewCond(&b.mu)
		c.cu = b
	}
	c.mu.Unlock()

	b.mu.Lock()
	b.data[partyIdx] = payload
	b.arrived++
	if b.arrived == b.capacity {
		c.mu.Lock()
		if c.cu == b {
			c.cu = nil
		}
		c.mu.Unlock()
		b.cond.Broadcast()
	} else {
		for b.arrived < b.capacity {
			b.cond.Wait()
		}
	}
	out := make([][]byte, len(b.data))
	copy(out, b.data)
	b.mu.Unlock()
	return out
}

// exchangeValues is a typed convenience wrapper around exchange for
// []uint64 payloads. Replicated3's rounds do not call it; they use
// send/recv.
func (c *cluster) exchangeValues(partyIdx int, payload []uint64) [][]uint64 {
	enc, err := cbor.Marshal(payload)
	if err != nil {
		panic(err)
	}
	raw := c.exchange(partyIdx, enc)
	out := make([][]uint64, len(raw))
	for i, r := range raw {
		var vals []uint64
		if err := cbor.Unmarshal(r, &vals); err != nil {
			panic(err)
		}
		out[i] = vals
	}
	return out
}
