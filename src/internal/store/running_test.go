// FILE: logmonitor/src/internal/store/running_test.go
package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sumBins(r *RunningCount) int {
	total := 0
	for _, b := range r.bins {
		total += b
	}
	return total
}

func TestRunningCount(t *testing.T) {
	t.Run("DecaysAfterFullWindow", func(t *testing.T) {
		var r RunningCount
		r.Add()
		for i := 0; i < RunningBins-1; i++ {
			r.Update()
			assert.Equal(t, 1, r.Get(), "tick %d", i)
		}
		r.Update()
		assert.Equal(t, 0, r.Get())
	})

	t.Run("TotalMatchesBins", func(t *testing.T) {
		var r RunningCount
		for i := 0; i < 37; i++ {
			for j := 0; j <= i%4; j++ {
				r.Add()
			}
			r.Update()
			assert.Equal(t, sumBins(&r), r.Get())
		}
	})

	t.Run("SpreadAcrossSlots", func(t *testing.T) {
		var r RunningCount
		r.Add()
		r.Update()
		r.Add()
		r.Add()
		assert.Equal(t, 3, r.Get())

		for i := 0; i < RunningBins-1; i++ {
			r.Update()
		}
		assert.Equal(t, 2, r.Get())
		r.Update()
		assert.Equal(t, 0, r.Get())
	})
}
