package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashCodeIsStableAndSpreads(t *testing.T) {
	a := HashCode([]byte("orders:1"))
	b := HashCode([]byte("orders:1"))
	c := HashCode([]byte("orders:2"))

	assert.Equal(t, a, b, "same key must hash to the same value")
	assert.NotEqual(t, a, c)
}

func TestTimeMillisIsMonotonicEnough(t *testing.T) {
	first := GetCurrentTimeMillis()
	second := GetCurrentTimeMillis()
	assert.LessOrEqual(t, first, second)
}
