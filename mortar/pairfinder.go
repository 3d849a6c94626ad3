package mortar

import (
	"context"

	"github.com/notargets/parmortar/fem"
	"github.com/notargets/parmortar/geometry2D"
	"github.com/notargets/parmortar/mesh"
	"github.com/notargets/parmortar/parallel"
	"github.com/paulmach/orb"
)

// envelope is the aggregate extent of one rank's master and slave cells.
type envelope struct {
	Master, Slave       orb.Bound
	HasMaster, HasSlave bool
}

// boxList offers master cells by bounding box. Elems are local element
// indices on the sending rank.
type boxList struct {
	Elems  []int
	Bounds []orb.Bound
}

// masterCell is the full description of a master element shipped to the
// rank that holds the overlapping slave elements.
type masterCell struct {
	Global int
	Kind   geometry2D.Kind
	Verts  []orb.Point
	Dofs   []int
}

// candidate is a master cell received here together with the local slave
// elements whose boxes it overlaps.
type candidate struct {
	Source int
	Cell   masterCell
	Slaves []int
}

// cellSet holds the cells of one side with a box index over them. A
// malformed cell stays indexed by its vertex box so the pairs it would have
// formed can be counted; valid marks the entries that built a Shape.
type cellSet struct {
	elems  []int // index entry -> local element
	shapes []geometry2D.Shape
	bounds []orb.Bound
	valid  []bool
	index  *geometry2D.BoxIndex
	env    orb.Bound
	nvalid int
}

func newCellSet(s *fem.Space) (cs *cellSet) {
	cs = &cellSet{}
	for k := 0; k < s.NumElements(); k++ {
		var (
			shape, err = s.Shape(k)
			b          = elementBound(s.Mesh, k)
		)
		if len(cs.bounds) == 0 {
			cs.env = b
		} else {
			cs.env = cs.env.Union(b)
		}
		if err == nil {
			cs.nvalid++
		}
		cs.elems = append(cs.elems, k)
		cs.shapes = append(cs.shapes, shape)
		cs.bounds = append(cs.bounds, b)
		cs.valid = append(cs.valid, err == nil)
	}
	cs.index = geometry2D.NewBoxIndex(cs.bounds)
	return
}

func elementBound(l *mesh.Local, k int) orb.Bound {
	pts := make(orb.MultiPoint, len(l.Elems[k].Verts))
	for i, v := range l.Elems[k].Verts {
		pts[i] = l.Verts[v]
	}
	return pts.Bound()
}

func (cs *cellSet) empty() bool { return len(cs.elems) == 0 }

func (cs *cellSet) numMalformed() int { return len(cs.elems) - cs.nvalid }

// overlapping returns index entries whose box meets b.
func (cs *cellSet) overlapping(b orb.Bound) []int { return cs.index.Query(b) }

// pairFinder discovers master/slave element pairs across ranks without a
// global mesh. Intersection testing happens on the rank holding the slave
// element, so coupling rows are mostly produced where they are owned.
type pairFinder struct {
	comm          *parallel.Comm
	master, slave *fem.Space
	masters       *cellSet
	slaves        *cellSet
}

func newPairFinder(comm *parallel.Comm, master, slave *fem.Space) *pairFinder {
	return &pairFinder{
		comm:    comm,
		master:  master,
		slave:   slave,
		masters: newCellSet(master),
		slaves:  newCellSet(slave),
	}
}

// find runs the discovery protocol. Collective. The candidates are ordered
// by source rank, then by the sender's element order.
func (pf *pairFinder) find(ctx context.Context) (cands []candidate, err error) {
	var (
		mine = envelope{
			Master: pf.masters.env, HasMaster: !pf.masters.empty(),
			Slave: pf.slaves.env, HasSlave: !pf.slaves.empty(),
		}
		envs    []envelope
		offers  = make(map[int]boxList)
		offered map[int]boxList
		wants   = make(map[int][]int)
		wanted  map[int][]int
		cells   = make(map[int][]masterCell)
		arrived map[int][]masterCell
	)
	if envs, err = parallel.AllGather(ctx, pf.comm, mine); err != nil {
		return
	}
	// per element boxes only go where the slave envelope overlaps
	for q, env := range envs {
		if !mine.HasMaster || !env.HasSlave || !mine.Master.Intersects(env.Slave) {
			continue
		}
		var bl boxList
		for i, b := range pf.masters.bounds {
			if b.Intersects(env.Slave) {
				bl.Elems = append(bl.Elems, pf.masters.elems[i])
				bl.Bounds = append(bl.Bounds, b)
			}
		}
		if len(bl.Elems) > 0 {
			offers[q] = bl
		}
	}
	if offered, err = parallel.Exchange(ctx, pf.comm, offers); err != nil {
		return
	}
	for q, bl := range offered {
		for i, b := range bl.Bounds {
			if len(pf.slaves.overlapping(b)) > 0 {
				wants[q] = append(wants[q], bl.Elems[i])
			}
		}
	}
	if wanted, err = parallel.Exchange(ctx, pf.comm, wants); err != nil {
		return
	}
	for q, elems := range wanted {
		for _, k := range elems {
			cells[q] = append(cells[q], pf.describe(k))
		}
	}
	if arrived, err = parallel.Exchange(ctx, pf.comm, cells); err != nil {
		return
	}
	for src := 0; src < pf.comm.Size(); src++ {
		for _, cell := range arrived[src] {
			b := orb.MultiPoint(cell.Verts).Bound()
			slaves := pf.slaves.overlapping(b)
			if len(slaves) == 0 {
				continue
			}
			cands = append(cands, candidate{Source: src, Cell: cell, Slaves: slaves})
		}
	}
	return
}

func (pf *pairFinder) describe(k int) masterCell {
	var (
		l     = pf.master.Mesh
		verts = make([]orb.Point, len(l.Elems[k].Verts))
	)
	for i, v := range l.Elems[k].Verts {
		verts[i] = l.Verts[v]
	}
	return masterCell{
		Global: l.ElemGlobal[k],
		Kind:   l.Elems[k].Kind,
		Verts:  verts,
		Dofs:   pf.master.ElementDofs(k),
	}
}
