package commands

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dustin/go-humanize"

	"fblego/internal/diag"
	"fblego/internal/fixtures"
)

// memTestSizes are the two input sizes spec §9's mem-test driver
// compares peak heap usage across.
var memTestSizes = [2]int{100, 200}

// MemTestCommand implements `fble mem-test NAME [--growth]` (spec §6):
// runs the recursive scenario at two depths and compares their peak
// value-heap watermark, per spec §8 invariant 5 (tail-call
// boundedness) or its explicit opposite when --growth is given.
func MemTestCommand(name string, expectGrowth bool) int {
	if name != "mem-test-recurse" {
		fmt.Printf("mem-test only supports the \"mem-test-recurse\" scenario, got %q\n", name)
		return 2
	}

	var peaks [2]int64
	var g errgroup.Group
	for i, depth := range memTestSizes {
		i, depth := i, depth
		g.Go(func() error {
			r, err := evaluate(fixtures.MemTestRecurse(depth))
			if err != nil {
				return err
			}
			if r.checker.Sink.Failed() {
				sink := diag.NewStderr()
				for _, d := range r.checker.Sink.Diagnostics {
					sink.Error(d)
				}
				return fmt.Errorf("type checking depth %d failed", depth)
			}
			peaks[i] = r.peakBytes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Println(err)
		return 1
	}

	fmt.Printf("depth %d: %s peak, depth %d: %s peak\n",
		memTestSizes[0], humanize.Bytes(uint64(peaks[0])),
		memTestSizes[1], humanize.Bytes(uint64(peaks[1])))

	grew := peaks[1] > peaks[0]
	if grew == expectGrowth {
		return 0
	}
	if expectGrowth {
		fmt.Println("expected peak usage to grow with input size, it did not")
	} else {
		fmt.Println("expected constant peak usage, it grew")
	}
	return 1
}
