package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCancellation(t *testing.T) {
	c := NewCancellation()
	assert.False(t, c.Cancelled())

	select {
	case <-c.Done():
		t.Fatal("done closed before cancel")
	default:
	}

	c.Cancel()
	c.Cancel()

	assert.True(t, c.Cancelled())
	select {
	case <-c.Done():
	default:
		t.Fatal("done not closed after cancel")
	}
}

func TestCancellation_Nil(t *testing.T) {
	var c *Cancellation
	assert.False(t, c.Cancelled())
	assert.Nil(t, c.Done())
}
