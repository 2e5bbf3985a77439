package cycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache(t *testing.T) {
	c := NewTTL[string, string]()
	c.Set("key1", "value1", 200*time.Millisecond)
	v, ok := c.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", v)

	time.Sleep(250 * time.Millisecond)
	v, ok = c.Get("key1")
	assert.False(t, ok)
	assert.Equal(t, "", v)
}
