package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/jzx17/gofallback/pkg/types"
)

func TestChain(t *testing.T) {
	var chain Chain

	_, ok := chain.Last()
	assert.False(t, ok)
	assert.Nil(t, chain.Combined())

	p1 := types.NodeID{Index: 0, Provider: "p1", Credential: "c1"}
	p2 := types.NodeID{Index: 1, Provider: "p2", Credential: "c3"}
	err1 := errors.New("p1 overloaded")
	err2 := errors.New("p2 rejected")

	chain.Add(p1, err1, 4, 14*time.Second)
	chain.Add(p2, err2, 1, time.Second)

	assert.Equal(t, 2, chain.Len())
	assert.Equal(t, 5, chain.TotalAttempts())

	last, ok := chain.Last()
	require.True(t, ok)
	assert.Equal(t, p2, last.Node)
	assert.Equal(t, err2, last.Error)

	entries := chain.Entries()
	entries[0].Attempts = 99
	assert.Equal(t, 5, chain.TotalAttempts(), "Entries must return a copy")

	combined := chain.Combined()
	assert.ErrorIs(t, combined, err1)
	assert.ErrorIs(t, combined, err2)

	failures := multierr.Errors(combined)
	require.Len(t, failures, 2)
	assert.Equal(t, "#0 p1/c1: p1 overloaded", failures[0].Error())

	var nodeFailure *NodeFailure
	require.ErrorAs(t, failures[1], &nodeFailure)
	assert.Equal(t, p2, nodeFailure.Node)
	assert.Equal(t, 1, nodeFailure.Attempts)
}
