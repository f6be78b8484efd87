// Package wallet implements lampod's on-chain wallet manager: BIP39
// mnemonic handling, BIP32 key derivation for both the node identity and
// receive addresses, and a ledger of outputs the wallet can spend.
package wallet

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	bip39 "github.com/tyler-smith/go-bip39"
)

// Derivation constants. The node identity lives on its own hardened
// purpose (as lightning nodes conventionally do), receive addresses on
// the BIP84 segwit path.
const (
	nodePurpose    = 1017
	addressPurpose = 84
)

// Utxo is an output the wallet can spend.
type Utxo struct {
	TxID      string `json:"txid"`
	Vout      uint32 `json:"vout"`
	AmountSat uint64 `json:"amount_sat"`
	Address   string `json:"address"`
}

// Wallet derives keys and addresses from a single BIP39 seed.
type Wallet struct {
	network *chaincfg.Params
	nodeKey *btcec.PrivateKey

	mu         sync.Mutex
	addressKey *hdkeychain.ExtendedKey // account-level BIP84 key
	nextIndex  uint32
	addresses  []string
	utxos      []Utxo
}

// New creates a wallet from a freshly generated 24-word mnemonic and
// returns the mnemonic so the caller can hand it to the user exactly
// once.
func New(network *chaincfg.Params) (*Wallet, string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return nil, "", err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, "", err
	}
	w, err := Restore(network, mnemonic)
	if err != nil {
		return nil, "", err
	}
	return w, mnemonic, nil
}

// Restore rebuilds a wallet from an existing mnemonic. The same mnemonic
// always yields the same node identity and address sequence.
func Restore(network *chaincfg.Params, mnemonic string) (*Wallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid BIP39 mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, "")

	master, err := hdkeychain.NewMaster(seed, network)
	if err != nil {
		return nil, fmt.Errorf("deriving master key: %w", err)
	}

	nodeKey, err := deriveNodeKey(master, network)
	if err != nil {
		return nil, err
	}
	addressKey, err := deriveAccountKey(master, network)
	if err != nil {
		return nil, err
	}

	return &Wallet{
		network:    network,
		nodeKey:    nodeKey,
		addressKey: addressKey,
	}, nil
}

// NodeID returns the hex-encoded compressed public key identifying this
// node on the network.
func (w *Wallet) NodeID() string {
	return hex.EncodeToString(w.nodeKey.PubKey().SerializeCompressed())
}

// NodeKey returns the node identity private key. The signer owns all
// uses of it beyond identification.
func (w *Wallet) NodeKey() *btcec.PrivateKey {
	return w.nodeKey
}

// Network returns the chain the wallet derives addresses for.
func (w *Wallet) Network() *chaincfg.Params {
	return w.network
}

// NewAddress derives the next unused P2WPKH receive address.
func (w *Wallet) NewAddress() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	child, err := w.addressKey.Derive(w.nextIndex)
	if err != nil {
		return "", fmt.Errorf("deriving address %d: %w", w.nextIndex, err)
	}
	pub, err := child.ECPubKey()
	if err != nil {
		return "", err
	}
	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(pub.SerializeCompressed()), w.network)
	if err != nil {
		return "", err
	}

	w.nextIndex++
	encoded := addr.EncodeAddress()
	w.addresses = append(w.addresses, encoded)
	return encoded, nil
}

// Addresses returns every address handed out so far, in derivation
// order.
func (w *Wallet) Addresses() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.addresses...)
}

// AddUtxo records an output as spendable. The chain backend calls this
// when it sees a deposit to one of our addresses confirm.
func (w *Wallet) AddUtxo(txid string, vout uint32, amountSat uint64, address string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.utxos = append(w.utxos, Utxo{TxID: txid, Vout: vout, AmountSat: amountSat, Address: address})
}

// ListFunds returns the spendable outputs and their total.
func (w *Wallet) ListFunds() ([]Utxo, uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var total uint64
	utxos := append([]Utxo(nil), w.utxos...)
	for _, u := range utxos {
		total += u.AmountSat
	}
	return utxos, total
}

func deriveNodeKey(master *hdkeychain.ExtendedKey, network *chaincfg.Params) (*btcec.PrivateKey, error) {
	key, err := deriveHardened(master, nodePurpose, coinType(network), 0)
	if err != nil {
		return nil, fmt.Errorf("deriving node key: %w", err)
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("deriving node key: %w", err)
	}
	return priv, nil
}

func deriveAccountKey(master *hdkeychain.ExtendedKey, network *chaincfg.Params) (*hdkeychain.ExtendedKey, error) {
	account, err := deriveHardened(master, addressPurpose, coinType(network), 0)
	if err != nil {
		return nil, fmt.Errorf("deriving account key: %w", err)
	}
	// External (receive) branch.
	return account.Derive(0)
}

func deriveHardened(key *hdkeychain.ExtendedKey, path ...uint32) (*hdkeychain.ExtendedKey, error) {
	var err error
	for _, step := range path {
		key, err = key.Derive(hdkeychain.HardenedKeyStart + step)
		if err != nil {
			return nil, err
		}
	}
	return key, nil
}

func coinType(network *chaincfg.Params) uint32 {
	if network.Name == chaincfg.MainNetParams.Name {
		return 0
	}
	return 1
}
