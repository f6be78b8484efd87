package node

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChannelState tracks a channel through its lifecycle.
type ChannelState string

const (
	ChannelPending ChannelState = "pending"
	ChannelOpen    ChannelState = "open"
	ChannelClosed  ChannelState = "closed"
)

// Channel is a payment channel funded by lampod.
type Channel struct {
	ID          string       `json:"channel_id"`
	PeerID      string       `json:"peer_id"`
	FundingTxID string       `json:"funding_txid"`
	AmountSat   uint64       `json:"amount_sat"`
	PushMsat    uint64       `json:"push_msat"`
	Public      bool         `json:"public"`
	State       ChannelState `json:"state"`
	OpenedAt    time.Time    `json:"opened_at"`
}

// ChannelManager tracks channels opened by this node.
type ChannelManager struct {
	mu       sync.RWMutex
	channels map[string]*Channel
}

func NewChannelManager() *ChannelManager {
	return &ChannelManager{channels: make(map[string]*Channel)}
}

// Open funds a new channel towards a connected peer. The channel starts
// pending; Confirm moves it to open once the funding transaction would
// confirm.
func (m *ChannelManager) Open(peerID string, amountSat, pushMsat uint64, public bool) (*Channel, error) {
	if amountSat == 0 {
		return nil, fmt.Errorf("channel amount must be positive")
	}
	if pushMsat > amountSat*1000 {
		return nil, fmt.Errorf("push amount %d msat exceeds channel capacity %d sat", pushMsat, amountSat)
	}

	txid := make([]byte, 32)
	if _, err := rand.Read(txid); err != nil {
		return nil, err
	}

	ch := &Channel{
		ID:          uuid.NewString(),
		PeerID:      peerID,
		FundingTxID: hex.EncodeToString(txid),
		AmountSat:   amountSat,
		PushMsat:    pushMsat,
		Public:      public,
		State:       ChannelPending,
		OpenedAt:    time.Now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.ID] = ch
	return ch, nil
}

// Confirm moves a pending channel to open.
func (m *ChannelManager) Confirm(id string) (*Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[id]
	if !ok {
		return nil, fmt.Errorf("unknown channel `%s`", id)
	}
	if ch.State != ChannelPending {
		return nil, fmt.Errorf("channel `%s` is %s, not pending", id, ch.State)
	}
	ch.State = ChannelOpen
	return ch, nil
}

// Close moves a pending or open channel to closed.
func (m *ChannelManager) Close(id string) (*Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[id]
	if !ok {
		return nil, fmt.Errorf("unknown channel `%s`", id)
	}
	if ch.State == ChannelClosed {
		return nil, fmt.Errorf("channel `%s` already closed", id)
	}
	ch.State = ChannelClosed
	return ch, nil
}

// List returns channels ordered by opening time, oldest first.
func (m *ChannelManager) List() []*Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()

	channels := make([]*Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool {
		if channels[i].OpenedAt.Equal(channels[j].OpenedAt) {
			return channels[i].ID < channels[j].ID
		}
		return channels[i].OpenedAt.Before(channels[j].OpenedAt)
	})
	return channels
}

// Len returns the number of channels in any state.
func (m *ChannelManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channels)
}
