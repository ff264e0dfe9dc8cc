package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEmptyIsEmpty(t *testing.T) {
	d := NewEmpty()
	assert.True(t, IsEmpty(d))
}

func TestIsEmptyFalseAfterSet(t *testing.T) {
	d := NewEmpty()
	d.Set["foo"] = "bar"
	assert.False(t, IsEmpty(d))
}

func TestCloneIsIndependent(t *testing.T) {
	d := NewEmpty()
	d.Set["foo"] = "bar"
	d.Append["items"] = []any{"a", "b"}

	c := Clone(d)
	c.Set["foo"] = "baz"
	c.Append["items"][0] = "z"

	assert.Equal(t, "bar", d.Set["foo"], "clone mutation must not leak back into original")
	assert.Equal(t, "a", d.Append["items"][0], "clone must copy append slices, not alias them")
}
