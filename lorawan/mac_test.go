package lorawan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkADRReqRoundTrip(t *testing.T) {
	req := LinkADRReq{DR: 3, TxPowerIndex: 5, ChMask: 0x00FF, Redundancy: 0}
	encoded := req.encode()

	cmds, err := ParseMACCommands(false, encoded)
	require.NoError(t, err)
	require.Len(t, cmds, 1)

	got, ok := cmds[0].(LinkADRReq)
	require.True(t, ok)
	assert.Equal(t, 3, got.DR)
	assert.Equal(t, 5, got.TxPowerIndex)
	assert.Equal(t, uint16(0x00FF), got.ChMask)
}

func TestLinkADRAnsEncodeDecode(t *testing.T) {
	ans := LinkADRAns{Status: 0x07}
	cmds, err := ParseMACCommands(true, ans.encode())
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, LinkADRAns{Status: 0x07}, cmds[0])
}

func TestParseMACCommandsRejectsTruncatedPayload(t *testing.T) {
	_, err := ParseMACCommands(false, []byte{byte(CIDLinkADR), 0x01})
	assert.Error(t, err)
}

func TestDRToSFTable(t *testing.T) {
	sf, ok := DRToSF(3)
	require.True(t, ok)
	assert.Equal(t, 9, sf)

	dr, ok := SFToDR(9)
	require.True(t, ok)
	assert.Equal(t, 3, dr)
}

func TestTxPowerIndexToDBm(t *testing.T) {
	dbm, ok := TxPowerIndexToDBm(5)
	require.True(t, ok)
	assert.Equal(t, 5.0, dbm)
}

func TestComputeRxWindows(t *testing.T) {
	assert.Equal(t, 11.0, ComputeRX1(10))
	assert.Equal(t, 12.0, ComputeRX2(10))
}
