package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssertOwner(t *testing.T) {
	assert.NotPanics(t, func() { assertOwner("alice", "alice") })
	assert.PanicsWithValue(t,
		`store: isolation violation: row owner "bob" leaked into scope "alice"`,
		func() { assertOwner("bob", "alice") })
}
