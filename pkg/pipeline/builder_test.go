package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/gofallback/internal/testutils"
	"github.com/jzx17/gofallback/pkg/retry"
	"github.com/jzx17/gofallback/pkg/types"
)

func TestPlan_Ordering(t *testing.T) {
	planned, err := Plan("m", orderingRouting())
	require.NoError(t, err)

	ids := make([]types.NodeID, len(planned))
	for i, p := range planned {
		ids[i] = p.ID
	}
	assert.Equal(t, []types.NodeID{
		{Index: 0, Provider: "p1", Credential: "c1"},
		{Index: 1, Provider: "p1", Credential: "c2"},
		{Index: 2, Provider: "p2", Credential: "c3"},
	}, ids)
	assert.Equal(t, "s3", planned[2].Credential.Secret)
}

func TestPlan_SecondaryIsCredentialMajor(t *testing.T) {
	routing := &types.Routing{
		Targets: map[string][]string{"m": {"together", "fireworks-ai", "nebius"}},
		Primary: types.PrimaryClass{
			Provider:    "openrouter",
			Credentials: []types.Credential{{Name: "or-1"}},
		},
		Secondary: []types.Credential{
			{Name: "hf-1", Providers: []string{"nebius", "together"}},
			{Name: "hf-2", Providers: []string{"together", "fireworks-ai", "nebius"}},
			{Name: "hf-3", Providers: []string{"sambanova"}},
		},
	}

	planned, err := Plan("m", routing)
	require.NoError(t, err)

	var got []string
	for _, p := range planned {
		got = append(got, p.ID.Provider+"/"+p.ID.Credential)
	}
	assert.Equal(t, []string{
		"openrouter/or-1",
		"together/hf-1",
		"nebius/hf-1",
		"together/hf-2",
		"fireworks-ai/hf-2",
		"nebius/hf-2",
	}, got)
}

func TestPlan_Errors(t *testing.T) {
	_, err := Plan("missing", orderingRouting())
	require.Error(t, err)
	assert.True(t, types.IsConfigurationError(err))
	assert.ErrorIs(t, err, types.ErrUnknownTarget)

	noPath := &types.Routing{
		Targets:   map[string][]string{"m": {"p9"}},
		Secondary: []types.Credential{{Name: "c3", Providers: []string{"p2"}}},
	}
	_, err = Plan("m", noPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoViablePath)

	_, err = Plan("m", nil)
	assert.ErrorIs(t, err, types.ErrUnknownTarget)
}

func TestBuild(t *testing.T) {
	invoker := testutils.NewFakeInvoker()

	p, err := Build[string, string]("m", orderingRouting(), invoker)
	require.NoError(t, err)
	assert.Equal(t, "m", p.Target())
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, "p2", p.Node(2).Provider())
	assert.Equal(t, "c3", p.Node(2).Credential().Name)
	assert.Equal(t, 0, invoker.TotalCalls(), "building must not call the adapter")

	// nil routing waits fall back to the default sequence
	assert.Equal(t, 4, p.Node(0).Policy().MaxAttempts())

	nodes := p.Nodes()
	nodes[0] = nil
	assert.NotNil(t, p.Node(0), "Nodes must return a copy")
}

func TestBuild_Policies(t *testing.T) {
	invoker := testutils.NewFakeInvoker()

	routing := orderingRouting()
	routing.Waits = []time.Duration{}
	p, err := Build[string, string]("m", routing, invoker)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Node(0).Policy().MaxAttempts())

	routing.Waits = []time.Duration{time.Second, time.Second}
	p, err = Build[string, string]("m", routing, invoker)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Node(1).Policy().MaxAttempts())

	p, err = Build[string, string]("m", routing, invoker, WithPolicy(retry.NoRetry()))
	require.NoError(t, err)
	for _, n := range p.Nodes() {
		assert.Equal(t, 1, n.Policy().MaxAttempts())
	}
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build[string, string]("m", orderingRouting(), nil)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = Build[string, string]("missing", orderingRouting(), testutils.NewFakeInvoker())
	assert.True(t, types.IsConfigurationError(err))
}

func TestAttemptNode_PassesCallDetails(t *testing.T) {
	invoker := testutils.NewFakeInvoker().On("p1/c2", testutils.FailTimes(1, "ok"))
	routing := orderingRouting()
	routing.Waits = []time.Duration{0}

	p, err := Build[string, string]("m", routing, invoker)
	require.NoError(t, err)

	value, attempts, err := p.Node(1).Attempt(context.Background(), "payload")
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 2, attempts)

	calls := invoker.Calls()
	require.Len(t, calls, 2)
	for i, c := range calls {
		assert.Equal(t, "m", c.Target)
		assert.Equal(t, "p1", c.Provider)
		assert.Equal(t, "c2", c.Credential.Name)
		assert.Equal(t, "payload", c.Payload)
		assert.Equal(t, i+1, c.Attempt)
	}

	stats := p.Node(1).Stats()
	assert.Equal(t, int64(2), stats.TotalAttempts)
	assert.Equal(t, int64(1), stats.TotalRetries)
}
