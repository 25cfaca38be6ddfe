package escrow

import (
	"math/big"
	"testing"

	"github.com/sardis-labs/agentpay/crypto"
	"github.com/stretchr/testify/require"
)

func addr(fill byte) crypto.Address {
	b := make([]byte, 20)
	for i := range b {
		b[i] = fill
	}
	return crypto.MustNewAddress(crypto.AgentPrefix, b)
}

func TestCreateRejectsSamePayerAndPayee(t *testing.T) {
	same := addr(0x01)
	_, err := Create("e1", same, same, "base", "USDC", big.NewInt(100), 0, 100)
	require.Error(t, err)
}

func TestCreateRejectsNonPositiveAmount(t *testing.T) {
	_, err := Create("e1", addr(0x01), addr(0x02), "base", "USDC", big.NewInt(0), 0, 100)
	require.Error(t, err)
}

func TestFullLifecycleToReleased(t *testing.T) {
	e, err := Create("e1", addr(0x01), addr(0x02), "base", "USDC", big.NewInt(100), 0, 1000)
	require.NoError(t, err)

	funded, err := e.Fund("0x1")
	require.NoError(t, err)
	require.Equal(t, StatusFunded, funded.Status)

	delivered, err := funded.ConfirmDelivery("proof-hash")
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, delivered.Status)

	released, err := delivered.Release()
	require.NoError(t, err)
	require.Equal(t, StatusReleased, released.Status)
}

func TestDisputeFromFundedThenRefund(t *testing.T) {
	e, _ := Create("e1", addr(0x01), addr(0x02), "base", "USDC", big.NewInt(100), 0, 1000)
	funded, _ := e.Fund("0x1")
	disputed, err := funded.Dispute("item not as described")
	require.NoError(t, err)
	require.Equal(t, StatusDisputed, disputed.Status)

	refunded, err := disputed.Refund()
	require.NoError(t, err)
	require.Equal(t, StatusRefunded, refunded.Status)
}

func TestInvalidTransitionRejected(t *testing.T) {
	e, _ := Create("e1", addr(0x01), addr(0x02), "base", "USDC", big.NewInt(100), 0, 1000)
	_, err := e.Release()
	require.Error(t, err)
	var it *ErrInvalidTransition
	require.ErrorAs(t, err, &it)
}

func TestReleasedAndRefundedAreTerminal(t *testing.T) {
	e, _ := Create("e1", addr(0x01), addr(0x02), "base", "USDC", big.NewInt(100), 0, 1000)
	funded, _ := e.Fund("0x1")
	delivered, _ := funded.ConfirmDelivery("proof")
	released, _ := delivered.Release()

	_, err := released.Refund()
	require.Error(t, err)
	_, err = released.Fund("0x2")
	require.Error(t, err)
}

func TestCheckExpiredTransitionsCreatedAndFundedOnly(t *testing.T) {
	created, _ := Create("e1", addr(0x01), addr(0x02), "base", "USDC", big.NewInt(100), 0, 100)
	funded, _ := created.Fund("0x1")
	funded.ExpiresAt = 100

	delivered, _ := funded.ConfirmDelivery("proof")
	delivered.ExpiresAt = 100

	updated, count := CheckExpiredEscrows([]*Escrow{funded, delivered}, 200)
	require.Equal(t, 1, count)
	require.Equal(t, StatusExpired, updated[0].Status)
	require.Equal(t, StatusDelivered, updated[1].Status)
}

func TestExpiredCanOnlyBeRefunded(t *testing.T) {
	e, _ := Create("e1", addr(0x01), addr(0x02), "base", "USDC", big.NewInt(100), 0, 100)
	expired := e.CheckExpired(200)
	require.NotNil(t, expired)
	require.Equal(t, StatusExpired, expired.Status)

	refunded, err := expired.Refund()
	require.NoError(t, err)
	require.Equal(t, StatusRefunded, refunded.Status)
}
