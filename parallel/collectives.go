package parallel

import (
	"context"
	"fmt"
	"sort"
)

func (c *Comm) allGather(ctx context.Context, v any) (all []any, err error) {
	var (
		tag = c.nextTag()
		np  = c.Size()
	)
	for r := 0; r < np; r++ {
		if r == c.rank {
			continue
		}
		if err = c.Send(ctx, r, tag, v); err != nil {
			return
		}
	}
	all = make([]any, np)
	all[c.rank] = v
	for r := 0; r < np; r++ {
		if r == c.rank {
			continue
		}
		if all[r], err = c.Recv(ctx, r, tag); err != nil {
			return nil, err
		}
	}
	return
}

// Barrier returns once every rank has entered it.
func (c *Comm) Barrier(ctx context.Context) error {
	_, err := c.allGather(ctx, nil)
	return err
}

// AllGather returns v from every rank, indexed by rank.
func AllGather[T any](ctx context.Context, c *Comm, v T) (all []T, err error) {
	var raw []any
	if raw, err = c.allGather(ctx, v); err != nil {
		return
	}
	all = make([]T, len(raw))
	for r, p := range raw {
		if all[r], err = assertPayload[T](c, r, "allgather", p); err != nil {
			return nil, err
		}
	}
	return
}

// Gather collects v on root. Non-root ranks receive a nil slice.
func Gather[T any](ctx context.Context, c *Comm, root int, v T) (all []T, err error) {
	var tag = c.nextTag()
	if c.rank != root {
		err = c.Send(ctx, root, tag, v)
		return
	}
	all = make([]T, c.Size())
	all[root] = v
	for r := 0; r < c.Size(); r++ {
		if r == root {
			continue
		}
		var p any
		if p, err = c.Recv(ctx, r, tag); err != nil {
			return nil, err
		}
		if all[r], err = assertPayload[T](c, r, "gather", p); err != nil {
			return nil, err
		}
	}
	return
}

// Bcast distributes root's v to every rank.
func Bcast[T any](ctx context.Context, c *Comm, root int, v T) (out T, err error) {
	var tag = c.nextTag()
	if c.rank == root {
		for r := 0; r < c.Size(); r++ {
			if r == root {
				continue
			}
			if err = c.Send(ctx, r, tag, v); err != nil {
				return
			}
		}
		return v, nil
	}
	var p any
	if p, err = c.Recv(ctx, root, tag); err != nil {
		return
	}
	return assertPayload[T](c, root, "bcast", p)
}

// AllReduceSum replaces x on every rank with the elementwise sum over all ranks.
// The summation order is by rank, so every rank gets bit-identical results.
func AllReduceSum(ctx context.Context, c *Comm, x []float64) (err error) {
	var (
		all [][]float64
		mine = append([]float64(nil), x...)
	)
	if all, err = AllGather(ctx, c, mine); err != nil {
		return
	}
	for i := range x {
		x[i] = 0
	}
	for r, xr := range all {
		if len(xr) != len(x) {
			return &CommunicationError{Rank: c.rank, Peer: r, Op: "allreduce",
				Err: fmt.Errorf("length mismatch: have %d, peer sent %d", len(x), len(xr))}
		}
		for i, val := range xr {
			x[i] += val
		}
	}
	return
}

func AllReduceMax(ctx context.Context, c *Comm, v float64) (max float64, err error) {
	var all []float64
	if all, err = AllGather(ctx, c, v); err != nil {
		return
	}
	max = all[0]
	for _, val := range all[1:] {
		if val > max {
			max = val
		}
	}
	return
}

func AllReduceOr(ctx context.Context, c *Comm, v bool) (found bool, err error) {
	var all []bool
	if all, err = AllGather(ctx, c, v); err != nil {
		return
	}
	for _, val := range all {
		found = found || val
	}
	return
}

// Exchange is a sparse all-to-all: out maps destination rank to payload and
// the result maps source rank to payload. Only ranks that actually have
// something to say send a message, but every rank must call Exchange. A
// payload addressed to the calling rank is delivered without a message.
func Exchange[T any](ctx context.Context, c *Comm, out map[int]T) (in map[int]T, err error) {
	var (
		dests = make([]int, 0, len(out))
		all   [][]int
		tag   int
	)
	for dest := range out {
		if dest < 0 || dest >= c.Size() {
			return nil, &CommunicationError{Rank: c.rank, Peer: dest, Op: "exchange",
				Err: fmt.Errorf("destination out of range [0,%d)", c.Size())}
		}
		dests = append(dests, dest)
	}
	sort.Ints(dests)
	if all, err = AllGather(ctx, c, dests); err != nil {
		return
	}
	tag = c.nextTag()
	in = make(map[int]T)
	for _, dest := range dests {
		if dest == c.rank {
			in[c.rank] = out[dest]
			continue
		}
		if err = c.Send(ctx, dest, tag, out[dest]); err != nil {
			return nil, err
		}
	}
	for src, srcDests := range all {
		if src == c.rank || !containsRank(srcDests, c.rank) {
			continue
		}
		var p any
		if p, err = c.Recv(ctx, src, tag); err != nil {
			return nil, err
		}
		if in[src], err = assertPayload[T](c, src, "exchange", p); err != nil {
			return nil, err
		}
	}
	return
}

func containsRank(sorted []int, rank int) bool {
	i := sort.SearchInts(sorted, rank)
	return i < len(sorted) && sorted[i] == rank
}

func assertPayload[T any](c *Comm, from int, op string, p any) (v T, err error) {
	if p == nil {
		// untyped nil is the zero value for pointer, slice and map payloads
		return
	}
	var ok bool
	if v, ok = p.(T); !ok {
		err = &CommunicationError{Rank: c.rank, Peer: from, Op: op,
			Err: fmt.Errorf("%w: unexpected payload type %T", ErrProtocol, p)}
	}
	return
}
