// Package signer isolates every use of lampod's private keys behind a
// byte-oriented signing protocol. The daemon only ever talks to a
// Transport, so the in-process signer shipped here can later be swapped
// for one living in a separate process without touching callers.
package signer

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Protocol message types. Every message is one type byte followed by
// the payload.
const (
	MsgPing       byte = 0x00
	MsgPubKey     byte = 0x01
	MsgSignDigest byte = 0x02
)

var (
	ErrEmptyMessage   = errors.New("signer: empty message")
	ErrUnknownMessage = errors.New("signer: unknown message type")
)

// Transport is the signer protocol surface. NodeCall addresses the node
// identity key; ChannelCall addresses a key scoped to one channel
// database entry with one peer.
type Transport interface {
	NodeCall(msg []byte) ([]byte, error)
	ChannelCall(dbID uint64, peerID []byte, msg []byte) ([]byte, error)
}

// InProcessSigner runs the signer protocol inside the daemon process,
// holding the node key in memory. No persistence: channel keys are
// re-derived from the node key on every call.
type InProcessSigner struct {
	nodeKey *btcec.PrivateKey
}

func NewInProcess(nodeKey *btcec.PrivateKey) *InProcessSigner {
	return &InProcessSigner{nodeKey: nodeKey}
}

// NodeCall handles a protocol message against the node identity key.
func (s *InProcessSigner) NodeCall(msg []byte) ([]byte, error) {
	return handle(s.nodeKey, msg)
}

// ChannelCall handles a protocol message against a channel-scoped key
// derived deterministically from the node key, the peer and the channel
// database id.
func (s *InProcessSigner) ChannelCall(dbID uint64, peerID []byte, msg []byte) ([]byte, error) {
	key := s.channelKey(dbID, peerID)
	return handle(key, msg)
}

func (s *InProcessSigner) channelKey(dbID uint64, peerID []byte) *btcec.PrivateKey {
	h := sha256.New()
	h.Write(s.nodeKey.Serialize())
	h.Write(peerID)
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], dbID)
	h.Write(id[:])

	key, _ := btcec.PrivKeyFromBytes(h.Sum(nil))
	return key
}

func handle(key *btcec.PrivateKey, msg []byte) ([]byte, error) {
	if len(msg) == 0 {
		return nil, ErrEmptyMessage
	}
	payload := msg[1:]

	switch msg[0] {
	case MsgPing:
		return payload, nil
	case MsgPubKey:
		return key.PubKey().SerializeCompressed(), nil
	case MsgSignDigest:
		if len(payload) != sha256.Size {
			return nil, fmt.Errorf("signer: digest must be %d bytes, got %d", sha256.Size, len(payload))
		}
		sig := ecdsa.Sign(key, payload)
		return sig.Serialize(), nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownMessage, msg[0])
	}
}

// SignDigest is a convenience wrapper building and issuing a
// MsgSignDigest node call.
func SignDigest(t Transport, digest [sha256.Size]byte) ([]byte, error) {
	msg := append([]byte{MsgSignDigest}, digest[:]...)
	return t.NodeCall(msg)
}
