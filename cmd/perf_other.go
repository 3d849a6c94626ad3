//go:build !linux

package cmd

import "fmt"

func countInstructions(fn func() error) (count uint64, err error) {
	if err = fn(); err != nil {
		return
	}
	return 0, fmt.Errorf("instruction counting needs linux perf events")
}
