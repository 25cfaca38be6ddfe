package approval

import (
	"testing"
	"time"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/stretchr/testify/require"
)

func newWorkflowAt(now time.Time) *Workflow {
	w := NewWorkflow()
	w.now = func() time.Time { return now }
	return w
}

func TestCreateRejectsQuorumOutOfRange(t *testing.T) {
	w := NewWorkflow()
	_, err := w.Create("tx-1", []string{"alice", "bob"}, 0, time.Hour)
	require.Error(t, err)

	_, err = w.Create("tx-1", []string{"alice", "bob"}, 3, time.Hour)
	require.Error(t, err)
}

func TestCreateRejectsDuplicateTransaction(t *testing.T) {
	w := NewWorkflow()
	_, err := w.Create("tx-1", []string{"alice", "bob"}, 1, time.Hour)
	require.NoError(t, err)

	_, err = w.Create("tx-1", []string{"alice", "bob"}, 1, time.Hour)
	require.Error(t, err)
}

func TestApproveReachesQuorum(t *testing.T) {
	w := NewWorkflow()
	_, err := w.Create("tx-1", []string{"alice", "bob", "carol"}, 2, time.Hour)
	require.NoError(t, err)

	req, err := w.Approve("tx-1", "alice")
	require.NoError(t, err)
	require.False(t, req.CheckQuorum())

	req, err = w.Approve("tx-1", "bob")
	require.NoError(t, err)
	require.True(t, req.CheckQuorum())
}

func TestApproveRejectsDoubleVote(t *testing.T) {
	w := NewWorkflow()
	w.Create("tx-1", []string{"alice", "bob"}, 2, time.Hour)
	_, err := w.Approve("tx-1", "alice")
	require.NoError(t, err)

	_, err = w.Approve("tx-1", "alice")
	require.Error(t, err)
}

func TestApproveRejectsNonRequiredSigner(t *testing.T) {
	w := NewWorkflow()
	w.Create("tx-1", []string{"alice", "bob"}, 1, time.Hour)
	_, err := w.Approve("tx-1", "mallory")
	require.Error(t, err)
}

func TestRejectKillsRequestTerminally(t *testing.T) {
	w := NewWorkflow()
	w.Create("tx-1", []string{"alice", "bob"}, 1, time.Hour)
	_, err := w.Reject("tx-1", "alice")
	require.NoError(t, err)

	_, err = w.Approve("tx-1", "bob")
	require.Error(t, err)
}

func TestApproveRejectsExpiredRequest(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	w := newWorkflowAt(now)
	w.Create("tx-1", []string{"alice"}, 1, time.Minute)

	w.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err := w.Approve("tx-1", "alice")
	require.Error(t, err)
}

func TestApproveUnknownTransactionIsNotFound(t *testing.T) {
	w := NewWorkflow()
	_, err := w.Approve("missing", "alice")
	require.Error(t, err)
	e, ok := agentpayerrors.As(err)
	require.True(t, ok)
	require.Equal(t, agentpayerrors.CodeNotFound, e.Code)
}

func TestSweepExpiredRemovesOnlyExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	w := newWorkflowAt(now)
	w.Create("expiring", []string{"alice"}, 1, time.Minute)
	w.Create("fresh", []string{"alice"}, 1, time.Hour)

	w.now = func() time.Time { return now.Add(2 * time.Minute) }
	removed := w.SweepExpired()
	require.Equal(t, 1, removed)

	_, ok := w.Get("expiring")
	require.False(t, ok)
	_, ok = w.Get("fresh")
	require.True(t, ok)
}
