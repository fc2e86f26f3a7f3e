package redisx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chronoshop/storefront/internal/redisx"
)

func TestNewAppliesTimeouts(t *testing.T) {
	c := redisx.New("localhost:6379")
	defer c.Close()

	assert.Equal(t, 2*time.Second, c.Options().ReadTimeout)
	assert.Equal(t, 2*time.Second, c.Options().WriteTimeout)
}
