package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

/* Ensure Oversize() gives linear amortized cost of realloc/copy */
func TestGrowth(t *testing.T) {
	var currentSize = 0
	var copyCost int64 = 0

	for currentSize != MAX_ARRAY_LENGTH {
		nextSize := Oversize(1+currentSize, NUM_BYTES_OBJECT_REF)
		require.True(t, nextSize > currentSize, "%v -> %v", currentSize, nextSize)
		if currentSize > 0 {
			copyCost += int64(currentSize)
			copyCostPerElement := float64(copyCost) / float64(currentSize)
			require.True(t, copyCostPerElement < 10, "cost %v", copyCostPerElement)
		}
		currentSize = nextSize
	}
}

func TestGrowByteSliceKeepsContent(t *testing.T) {
	arr := []byte{1, 2, 3}
	grown := GrowByteSlice(arr, 20)
	require.True(t, len(grown) >= 20)
	require.Equal(t, []byte{1, 2, 3}, grown[:3])
	require.Equal(t, len(grown), len(GrowByteSlice(grown, 5)))
}
