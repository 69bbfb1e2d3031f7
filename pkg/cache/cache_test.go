package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResponses_SetGet(t *testing.T) {
	c := NewResponses(0, 0)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("/epc?lat=1&lon=2&top=10", []byte(`[]`))
	got, ok := c.Get("/epc?lat=1&lon=2&top=10")
	assert.True(t, ok)
	assert.Equal(t, []byte(`[]`), got)
	assert.Equal(t, 1, c.Count())

	c.Delete("/epc?lat=1&lon=2&top=10")
	assert.Equal(t, 0, c.Count())
}

func TestResponses_Evicts(t *testing.T) {
	c := NewResponses(3, time.Minute)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), []byte{byte(i)})
	}

	assert.Equal(t, 3, c.Count())
	_, ok := c.Get("k0")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = c.Get("k4")
	assert.True(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Count())
}

func TestResponses_Expires(t *testing.T) {
	c := NewResponses(10, 20*time.Millisecond)
	c.Set("k", []byte("v"))

	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
