package wallet

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"

func TestNew_generatesValidMnemonic(t *testing.T) {
	w, mnemonic, err := New(&chaincfg.RegressionNetParams)
	require.NoError(t, err)
	require.Len(t, strings.Fields(mnemonic), 24)

	// A fresh wallet must be restorable from its own mnemonic with the
	// same identity.
	restored, err := Restore(&chaincfg.RegressionNetParams, mnemonic)
	require.NoError(t, err)
	require.Equal(t, w.NodeID(), restored.NodeID())
}

func TestRestore_deterministic(t *testing.T) {
	a, err := Restore(&chaincfg.RegressionNetParams, testMnemonic)
	require.NoError(t, err)
	b, err := Restore(&chaincfg.RegressionNetParams, testMnemonic)
	require.NoError(t, err)

	require.Equal(t, a.NodeID(), b.NodeID())

	addrA, err := a.NewAddress()
	require.NoError(t, err)
	addrB, err := b.NewAddress()
	require.NoError(t, err)
	require.Equal(t, addrA, addrB, "same seed must yield the same address sequence")
}

func TestRestore_invalidMnemonic(t *testing.T) {
	_, err := Restore(&chaincfg.RegressionNetParams, "definitely not a mnemonic")
	require.Error(t, err)
}

func TestNodeID_shape(t *testing.T) {
	w, err := Restore(&chaincfg.RegressionNetParams, testMnemonic)
	require.NoError(t, err)

	// Compressed secp256k1 public key: 33 bytes hex encoded.
	require.Len(t, w.NodeID(), 66)
	prefix := w.NodeID()[:2]
	require.Contains(t, []string{"02", "03"}, prefix)
}

func TestNewAddress(t *testing.T) {
	w, err := Restore(&chaincfg.RegressionNetParams, testMnemonic)
	require.NoError(t, err)

	first, err := w.NewAddress()
	require.NoError(t, err)
	second, err := w.NewAddress()
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(first, "bcrt1"), "expected a regtest bech32 address, got %s", first)
	require.NotEqual(t, first, second, "addresses must not repeat")
	require.Equal(t, []string{first, second}, w.Addresses())
}

func TestNewAddress_networkPrefix(t *testing.T) {
	w, err := Restore(&chaincfg.TestNet3Params, testMnemonic)
	require.NoError(t, err)

	addr, err := w.NewAddress()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(addr, "tb1"), "expected a testnet bech32 address, got %s", addr)
}

func TestListFunds(t *testing.T) {
	w, err := Restore(&chaincfg.RegressionNetParams, testMnemonic)
	require.NoError(t, err)

	utxos, total := w.ListFunds()
	require.Empty(t, utxos)
	require.Zero(t, total)

	addr, err := w.NewAddress()
	require.NoError(t, err)

	w.AddUtxo("aa"+strings.Repeat("0", 62), 0, 50_000, addr)
	w.AddUtxo("bb"+strings.Repeat("0", 62), 1, 25_000, addr)

	utxos, total = w.ListFunds()
	require.Len(t, utxos, 2)
	require.EqualValues(t, 75_000, total)
}
