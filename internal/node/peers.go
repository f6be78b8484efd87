// Package node holds lampod's in-memory view of the lightning network:
// known peers, channels, issued invoices and fee estimates. Every
// manager guards its own state; callers may share instances across
// concurrently dispatched RPC callbacks.
package node

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Peer is a remote node lampod keeps a connection to.
type Peer struct {
	ID          string    `json:"node_id"`
	Host        string    `json:"host"`
	Port        int       `json:"port"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Addr returns the canonical id@host:port form.
func (p *Peer) Addr() string {
	return fmt.Sprintf("%s@%s:%d", p.ID, p.Host, p.Port)
}

// PeerManager tracks connected peers.
type PeerManager struct {
	mu    sync.RWMutex
	peers map[string]*Peer
}

func NewPeerManager() *PeerManager {
	return &PeerManager{peers: make(map[string]*Peer)}
}

// ParseAddr splits an id@host:port peer address.
func ParseAddr(addr string) (id, host string, port int, err error) {
	id, hostport, ok := strings.Cut(addr, "@")
	if !ok || id == "" {
		return "", "", 0, fmt.Errorf("invalid peer address %q: expected id@host:port", addr)
	}
	host, portStr, ok := strings.Cut(hostport, ":")
	if !ok || host == "" {
		return "", "", 0, fmt.Errorf("invalid peer address %q: expected id@host:port", addr)
	}
	port, err = strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", "", 0, fmt.Errorf("invalid peer port %q", portStr)
	}
	return id, host, port, nil
}

// Connect records a connection to a peer. Reconnecting an already known
// peer refreshes its address.
func (m *PeerManager) Connect(id, host string, port int) *Peer {
	m.mu.Lock()
	defer m.mu.Unlock()

	peer := &Peer{ID: id, Host: host, Port: port, ConnectedAt: time.Now().UTC()}
	m.peers[id] = peer
	return peer
}

// Get returns a connected peer by node id.
func (m *PeerManager) Get(id string) (*Peer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.peers[id]
	return p, ok
}

// List returns connected peers ordered by node id.
func (m *PeerManager) List() []*Peer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	peers := make([]*Peer, 0, len(m.peers))
	for _, p := range m.peers {
		peers = append(peers, p)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].ID < peers[j].ID })
	return peers
}

// Len returns the number of connected peers.
func (m *PeerManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.peers)
}
