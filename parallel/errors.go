package parallel

import (
	"errors"
	"fmt"
)

var (
	ErrUnreachable = errors.New("peer unreachable")
	ErrProtocol    = errors.New("protocol violation")
)

// CommunicationError reports a failed exchange with a peer. It is fatal for
// the enclosing collective operation on every rank.
type CommunicationError struct {
	Rank, Peer int
	Op         string
	Err        error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("rank %d: %s with peer %d failed: %v", e.Rank, e.Op, e.Peer, e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }
