//go:build !cgo

package mesh

import (
	"errors"

	"github.com/paulmach/orb"
)

func NewDelaunay(pts []orb.Point) (m *Mesh, err error) {
	return nil, errors.New("delaunay triangulation requires cgo")
}
