package normalizer

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"sol-terminal/src/logger"
	"sol-terminal/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

var testPool = models.MPoolConfig{
	Name: "orca-sol-usdc", Pair: "SOL/USDC", Dex: "orca",
	DecimalsA: 9, DecimalsB: 6, Enabled: true,
}

func testNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n := NewNormalizer(logger.NewLogger("ERROR", "normalizer-test"))
	n.SetSubscriptionResolver(func(subID uint64) (models.MPoolConfig, bool) {
		if subID == 42 {
			return testPool, true
		}
		return models.MPoolConfig{}, false
	})
	return n
}

// poolAccount builds a minimal whirlpool account buffer. sqrtHi is the
// integer part of the Q64.64 sqrt price.
func poolAccount(liquidityLo, sqrtHi uint64, tick int32) []byte {
	data := make([]byte, 269)
	binary.LittleEndian.PutUint64(data[49:], liquidityLo)
	binary.LittleEndian.PutUint64(data[65+8:], sqrtHi)
	binary.LittleEndian.PutUint32(data[81:], uint32(tick))
	return data
}

func notification(subID, slot uint64, account []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(account)
	return []byte(fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"accountNotification","params":{"subscription":%d,"result":{"context":{"slot":%d},"value":{"data":["%s","base64"],"lamports":1}}}}`,
		subID, slot, encoded))
}

func raw(payload []byte) models.MRawEvent {
	return models.MRawEvent{Payload: payload, ReceivedAt: time.Unix(1_700_000_000, 0)}
}

// -----------------------------------------------------------------------------

func TestNormalizeAccountNotification(t *testing.T) {
	n := testNormalizer(t)

	events, err := n.Normalize(raw(notification(42, 500, poolAccount(1000, 1, -7))))
	require.NoError(t, err)

	// First observation has no liquidity baseline, so no volume event yet
	require.Len(t, events, 2)

	price := events[0]
	assert.Equal(t, models.EventPriceTick, price.Kind)
	assert.Equal(t, "orca-sol-usdc", price.Instrument)
	assert.Equal(t, uint64(500), price.Slot)
	// sqrt price 1.0 squared, scaled by 10^(9-6)
	assert.InDelta(t, 1000.0, price.Price, 1e-9)
	assert.Equal(t, int32(-7), price.Tick)

	assert.Equal(t, models.EventAccountChange, events[1].Kind)
	assert.Equal(t, 1000.0, events[1].Liquidity)
}

// -----------------------------------------------------------------------------

func TestNormalizeEmitsVolumeOnLiquidityDelta(t *testing.T) {
	n := testNormalizer(t)

	_, err := n.Normalize(raw(notification(42, 500, poolAccount(1000, 1, 0))))
	require.NoError(t, err)

	events, err := n.Normalize(raw(notification(42, 501, poolAccount(1300, 1, 0))))
	require.NoError(t, err)
	require.Len(t, events, 3)

	volume := events[1]
	assert.Equal(t, models.EventVolumeUpdate, volume.Kind)
	assert.InDelta(t, 300.0, volume.Volume, 1e-9)
}

// -----------------------------------------------------------------------------

func TestNormalizeRoutesAcksToHandler(t *testing.T) {
	n := testNormalizer(t)

	var gotID uint64
	var gotResult json.RawMessage
	n.SetAckHandler(func(requestID uint64, result json.RawMessage, rpcErr *RPCError) {
		gotID = requestID
		gotResult = result
		assert.Nil(t, rpcErr)
	})

	events, err := n.Normalize(raw([]byte(`{"jsonrpc":"2.0","id":7,"result":42}`)))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, uint64(7), gotID)
	assert.Equal(t, json.RawMessage("42"), gotResult)
}

// -----------------------------------------------------------------------------

func TestNormalizeRoutesRPCErrors(t *testing.T) {
	n := testNormalizer(t)

	var gotErr *RPCError
	n.SetAckHandler(func(requestID uint64, result json.RawMessage, rpcErr *RPCError) {
		gotErr = rpcErr
	})

	_, err := n.Normalize(raw([]byte(`{"jsonrpc":"2.0","id":7,"error":{"code":-32602,"message":"invalid params"}}`)))
	require.NoError(t, err)
	require.NotNil(t, gotErr)
	assert.Equal(t, -32602, gotErr.Code)
}

// -----------------------------------------------------------------------------

func TestNormalizeReassemblesFragments(t *testing.T) {
	n := testNormalizer(t)

	payload := notification(42, 500, poolAccount(1000, 1, 0))
	half := len(payload) / 2

	events, err := n.Normalize(raw(payload[:half]))
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = n.Normalize(raw(payload[half:]))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

// -----------------------------------------------------------------------------

func TestNormalizeHandlesCoalescedMessages(t *testing.T) {
	n := testNormalizer(t)

	payload := append(notification(42, 500, poolAccount(1000, 1, 0)),
		notification(42, 501, poolAccount(1000, 1, 0))...)

	events, err := n.Normalize(raw(payload))
	require.NoError(t, err)
	assert.Len(t, events, 4) // 2 per notification, no volume deltas
}

// -----------------------------------------------------------------------------

func TestNormalizeDropsUnknownMethods(t *testing.T) {
	n := testNormalizer(t)

	events, err := n.Normalize(raw([]byte(`{"jsonrpc":"2.0","method":"slotNotification","params":{}}`)))
	require.NoError(t, err)
	assert.Empty(t, events)
}

// -----------------------------------------------------------------------------

func TestNormalizeDropsUnknownSubscription(t *testing.T) {
	n := testNormalizer(t)

	events, err := n.Normalize(raw(notification(99, 500, poolAccount(1000, 1, 0))))
	require.NoError(t, err)
	assert.Empty(t, events)
}

// -----------------------------------------------------------------------------

func TestNormalizeMalformedPayload(t *testing.T) {
	n := testNormalizer(t)

	_, err := n.Normalize(raw([]byte(`@@@not json@@@`)))
	require.Error(t, err)

	// The faulted buffer is discarded; the next clean message parses fine
	events, err := n.Normalize(raw(notification(42, 500, poolAccount(1000, 1, 0))))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

// -----------------------------------------------------------------------------

func TestNormalizeRejectsBadAccountData(t *testing.T) {
	n := testNormalizer(t)

	// Too short to be a whirlpool account
	short := base64.StdEncoding.EncodeToString(make([]byte, 10))
	payload := []byte(fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"accountNotification","params":{"subscription":42,"result":{"context":{"slot":1},"value":{"data":["%s","base64"],"lamports":1}}}}`,
		short))

	events, err := n.Normalize(raw(payload))
	require.Error(t, err)
	assert.Empty(t, events)
}

// -----------------------------------------------------------------------------

func TestResetClearsSessionState(t *testing.T) {
	n := testNormalizer(t)

	_, err := n.Normalize(raw(notification(42, 500, poolAccount(1000, 1, 0))))
	require.NoError(t, err)

	n.Reset()

	// After a reset there is no liquidity baseline, so no volume event
	events, err := n.Normalize(raw(notification(42, 501, poolAccount(1300, 1, 0))))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
