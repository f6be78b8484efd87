package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/Truja503/lampo/internal/daemon"
	"github.com/Truja503/lampo/internal/node"
)

type connectParams struct {
	// Addr is the full id@host:port form; alternatively the three
	// members can be given separately.
	Addr string `json:"addr,omitempty"`
	ID   string `json:"node_id,omitempty"`
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// Connect establishes (or refreshes) a connection to a remote peer.
func Connect(ctx *daemon.LampoDaemon, params json.RawMessage) (interface{}, error) {
	p, err := decodeParams[connectParams](params)
	if err != nil {
		return nil, err
	}

	id, host, port := p.ID, p.Host, p.Port
	if p.Addr != "" {
		if id, host, port, err = node.ParseAddr(p.Addr); err != nil {
			return nil, err
		}
	}
	if id == "" || host == "" || port == 0 {
		return nil, fmt.Errorf("connect requires `addr` or `node_id`, `host` and `port`")
	}

	peer := ctx.Peers().Connect(id, host, port)
	ctx.Logger().Printf("[INFO] connected to peer %s", peer.Addr())
	return peer, nil
}
