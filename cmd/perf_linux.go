//go:build linux

package cmd

import (
	"fmt"

	perf "github.com/hodgesds/perf-utils"
)

// countInstructions runs fn under a hardware instruction counter. When the
// counter cannot be opened fn still runs, and the error says so.
func countInstructions(fn func() error) (count uint64, err error) {
	var (
		ran bool
		pv  *perf.ProfileValue
	)
	pv, err = perf.CPUInstructions(func() error {
		ran = true
		return fn()
	})
	if !ran {
		if err = fn(); err != nil {
			return
		}
		return 0, fmt.Errorf("instruction counter unavailable, check perf_event_paranoid")
	}
	if err != nil {
		return
	}
	return pv.Value, nil
}
