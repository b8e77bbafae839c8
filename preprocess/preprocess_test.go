package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTileRepeatsSource(t *testing.T) {
	out := tile([]float32{1, 2, 3}, 7)
	assert.Equal(t, []float32{1, 2, 3, 1, 2, 3, 1}, out)
}

func TestTileTruncates(t *testing.T) {
	out := tile([]float32{1, 2, 3, 4}, 2)
	assert.Equal(t, []float32{1, 2}, out)
}

func TestTileEmptySourceYieldsZeros(t *testing.T) {
	out := tile(nil, 4)
	assert.Equal(t, []float32{0, 0, 0, 0}, out)
}
