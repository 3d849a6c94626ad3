package geometry2D

import "fmt"

// GeometryError reports an invalid cell, a failed inverse map or any other
// geometric operation that cannot produce a meaningful result.
type GeometryError struct {
	Op  string
	Msg string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry: %s: %s", e.Op, e.Msg)
}
