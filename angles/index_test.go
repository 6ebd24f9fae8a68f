package angles

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndex(t *testing.T) {
	idx := NewIndex()
	rows := []Row{
		{Zoom: 1, X: 1, Y: 0, Angle: 135, Count: 2},
		{Zoom: 1, X: 1, Y: 0, Angle: 90, Count: 7},
		{Zoom: 1, X: 1, Y: 1, Angle: 90, Count: 5},
		{Zoom: 1, X: 1, Y: 0, Angle: 90, Count: 3},
		{Zoom: 0, X: 0, Y: 0, Angle: 45, Count: 1},
	}
	for _, row := range rows {
		require.NoError(t, idx.Add(row))
	}
	require.Equal(t, 3, idx.Len())

	testCases := map[string]struct {
		key      TileKey
		expected Summary
	}{
		"summed-and-sorted": {
			TileKey{Zoom: 1, X: 1, Y: 0},
			Summary{Zoom: 1, X: 1, Y: 0, Total: 12, Angles: []AngleCount{{90, 10}, {135, 2}}},
		},
		"single": {
			TileKey{Zoom: 0, X: 0, Y: 0},
			Summary{Zoom: 0, X: 0, Y: 0, Total: 1, Angles: []AngleCount{{45, 1}}},
		},
		"missing": {
			TileKey{Zoom: 5, X: 1, Y: 1},
			Summary{Zoom: 5, X: 1, Y: 1, Angles: []AngleCount{}},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.expected, idx.Summary(tc.key))
		})
	}
}
