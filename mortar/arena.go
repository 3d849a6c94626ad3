package mortar

import (
	"github.com/notargets/parmortar/utils"
)

// contributionArena buffers triplets per destination rank until they are
// routed to their row owners. Buffers grow by doubling and reset keeps
// their capacity, so a rebuild reuses the previous allocation.
type contributionArena struct {
	bufs [][]Triplet
}

func newContributionArena(np int) *contributionArena {
	return &contributionArena{bufs: make([][]Triplet, np)}
}

func (a *contributionArena) add(dest int, t Triplet) {
	a.bufs[dest] = append(a.bufs[dest], t)
}

// addBlock scatters an element block. Block row i*comp+c maps to global row
// rows[i]*comp+c, likewise for columns; zeros are dropped.
func (a *contributionArena) addBlock(blk utils.Matrix, rows, cols []int, comp int, owner func(scalar int) int) {
	var nr, nc = blk.Dims()
	for i := 0; i < nr; i++ {
		var (
			g    = rows[i/comp]
			dest = owner(g)
			row  = g*comp + i%comp
		)
		for j := 0; j < nc; j++ {
			v := blk.At(i, j)
			if v == 0 {
				continue
			}
			a.add(dest, Triplet{Row: row, Col: cols[j/comp]*comp + j%comp, Val: v})
		}
	}
}

func (a *contributionArena) count() (n int) {
	for _, b := range a.bufs {
		n += len(b)
	}
	return
}

// outbox copies the non-empty buffers into messages keyed by destination.
// Receivers own the copies, so the arena can be reset and refilled while
// peers are still reading.
func (a *contributionArena) outbox() map[int][]Triplet {
	out := make(map[int][]Triplet)
	for dest, b := range a.bufs {
		if len(b) > 0 {
			out[dest] = append([]Triplet(nil), b...)
		}
	}
	return out
}

func (a *contributionArena) reset() {
	for dest := range a.bufs {
		a.bufs[dest] = a.bufs[dest][:0]
	}
}
