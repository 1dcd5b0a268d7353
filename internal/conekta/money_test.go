package conekta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(9999), ToMinorUnits(99.99))
	assert.Equal(t, int64(10000), ToMinorUnits(100))
	assert.Equal(t, int64(0), ToMinorUnits(0))
	assert.Equal(t, int64(50000), ToMinorUnits(500))

	// Half-cent amounts round away from zero.
	assert.Equal(t, int64(10000), ToMinorUnits(99.995))
}

func TestToMajorUnits(t *testing.T) {
	assert.Equal(t, 99.99, ToMajorUnits(9999))
	assert.Equal(t, 100.0, ToMajorUnits(10000))
	assert.Equal(t, 0.0, ToMajorUnits(0))
}

func TestMinorUnitsRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 9999, 10000, 123456789} {
		assert.Equal(t, cents, ToMinorUnits(ToMajorUnits(cents)))
	}
}
