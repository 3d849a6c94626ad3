package parallel

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Envelope is one point-to-point message. Payloads are passed by reference
// between ranks, so a sender must not mutate a payload after posting it.
type Envelope struct {
	From, Tag int
	Payload   any
}

// mailbox is the receive queue of a single rank. Posting never blocks; the
// owning rank scans the queue for a matching (from, tag) pair.
type mailbox struct {
	mu     sync.Mutex
	msgs   []Envelope
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (mb *mailbox) post(env Envelope) {
	mb.mu.Lock()
	mb.msgs = append(mb.msgs, env)
	mb.mu.Unlock()
	select {
	case mb.notify <- struct{}{}:
	default:
	}
}

func (mb *mailbox) take(from, tag int) (env Envelope, ok bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i, m := range mb.msgs {
		if m.From == from && m.Tag == tag {
			mb.msgs = append(mb.msgs[:i], mb.msgs[i+1:]...)
			return m, true
		}
	}
	return
}

// World is a set of cooperating ranks living in one address space. Each rank
// runs on its own goroutine and shares no state with its peers except through
// its Comm.
type World struct {
	size   int
	logOut io.Writer

	mu           sync.Mutex
	boxes        []*mailbox
	disconnected map[int]bool
}

func NewWorld(size int) *World {
	if size < 1 {
		panic(fmt.Errorf("world size must be >= 1, have %d", size))
	}
	return &World{
		size:         size,
		logOut:       os.Stderr,
		disconnected: make(map[int]bool),
	}
}

func (w *World) Size() int { return w.size }

// SetLogOutput redirects the per-rank loggers created by subsequent calls to Run.
func (w *World) SetLogOutput(out io.Writer) { w.logOut = out }

// Disconnect makes rank unreachable: every later Send addressed to it fails
// with a CommunicationError.
func (w *World) Disconnect(rank int) {
	w.mu.Lock()
	w.disconnected[rank] = true
	w.mu.Unlock()
}

func (w *World) reachable(rank int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.disconnected[rank]
}

// Run executes fn once per rank, SPMD style, and waits for all of them. The
// first rank to return an error cancels the context seen by every other rank,
// so peers blocked in a receive return instead of waiting forever. The error
// reported is the first one returned.
func (w *World) Run(ctx context.Context, fn func(ctx context.Context, c *Comm) error) error {
	w.boxes = make([]*mailbox, w.size)
	for r := range w.boxes {
		w.boxes[r] = newMailbox()
	}
	g, gctx := errgroup.WithContext(ctx)
	for r := 0; r < w.size; r++ {
		c := newComm(w, r)
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("rank %d panicked: %v", c.rank, p)
				}
			}()
			return fn(gctx, c)
		})
	}
	return g.Wait()
}

// Comm is the handle one rank uses to talk to its peers. It is not safe for
// concurrent use: a rank is single threaded.
type Comm struct {
	world *World
	rank  int
	seq   int
	log   *log.Logger
}

func newComm(w *World, rank int) *Comm {
	return &Comm{
		world: w,
		rank:  rank,
		log: log.New(w.logOut, fmt.Sprintf("[rank %d/%d] ", rank, w.size),
			log.LstdFlags|log.Lmsgprefix),
	}
}

func (c *Comm) Rank() int           { return c.rank }
func (c *Comm) Size() int           { return c.world.size }
func (c *Comm) Logger() *log.Logger { return c.log }

// nextTag hands out the tag for the next collective. Every rank calls
// collectives in the same order, so the sequences stay in lockstep. User tags
// are non-negative; collective tags are negative.
func (c *Comm) nextTag() int {
	c.seq++
	return -c.seq
}

func (c *Comm) Send(ctx context.Context, to, tag int, payload any) error {
	if to < 0 || to >= c.world.size {
		return &CommunicationError{Rank: c.rank, Peer: to, Op: "send",
			Err: fmt.Errorf("peer out of range [0,%d)", c.world.size)}
	}
	if err := ctx.Err(); err != nil {
		return &CommunicationError{Rank: c.rank, Peer: to, Op: "send", Err: err}
	}
	if !c.world.reachable(to) || !c.world.reachable(c.rank) {
		return &CommunicationError{Rank: c.rank, Peer: to, Op: "send", Err: ErrUnreachable}
	}
	c.world.boxes[to].post(Envelope{From: c.rank, Tag: tag, Payload: payload})
	return nil
}

// Recv blocks until a message with the given source and tag arrives or the
// context is cancelled. Messages with other (source, tag) pairs stay queued.
func (c *Comm) Recv(ctx context.Context, from, tag int) (payload any, err error) {
	if from < 0 || from >= c.world.size {
		return nil, &CommunicationError{Rank: c.rank, Peer: from, Op: "recv",
			Err: fmt.Errorf("peer out of range [0,%d)", c.world.size)}
	}
	box := c.world.boxes[c.rank]
	for {
		if env, ok := box.take(from, tag); ok {
			return env.Payload, nil
		}
		select {
		case <-box.notify:
		case <-ctx.Done():
			return nil, &CommunicationError{Rank: c.rank, Peer: from, Op: "recv", Err: ctx.Err()}
		}
	}
}
