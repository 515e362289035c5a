package workers

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount(t *testing.T) {
	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{
			name:       "CPU-bound task (1.0x multiplier)",
			multiplier: 1.0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
		{
			name:       "I/O-bound task (2.0x multiplier)",
			multiplier: 2.0,
			minExpect:  1,
			maxExpect:  availableCPU * 2,
		},
		{
			name:       "With limit lower than calculated",
			multiplier: 2.0,
			limit:      1,
			minExpect:  1,
			maxExpect:  1,
		},
		{
			name:       "Very low multiplier never drops below one",
			multiplier: 0.01,
			minExpect:  1,
			maxExpect:  max(1, int(float64(availableCPU)*0.01)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			assert.GreaterOrEqual(t, got, tt.minExpect)
			assert.LessOrEqual(t, got, tt.maxExpect)
		})
	}
}

func TestForIOAndForCPU(t *testing.T) {
	assert.Equal(t, Count(2.0, 8), ForIO(8))
	assert.Equal(t, Count(1.0, 8), ForCPU(8))
	assert.LessOrEqual(t, ForIO(3), 3)
}

func TestResolve(t *testing.T) {
	t.Run("explicit setting wins", func(t *testing.T) {
		assert.Equal(t, 12, Resolve(12, 8))
	})

	t.Run("zero falls back to calculation", func(t *testing.T) {
		assert.Equal(t, ForIO(8), Resolve(0, 8))
	})

	t.Run("negative falls back to calculation", func(t *testing.T) {
		assert.Equal(t, ForIO(8), Resolve(-3, 8))
	})
}
