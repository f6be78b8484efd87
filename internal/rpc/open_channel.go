package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/Truja503/lampo/internal/daemon"
)

type openChannelParams struct {
	NodeID    string `json:"node_id"`
	AmountSat uint64 `json:"amount_sat"`
	PushMsat  uint64 `json:"push_msat,omitempty"`
	Public    *bool  `json:"public,omitempty"`
}

// OpenChannel funds a channel towards an already connected peer.
func OpenChannel(ctx *daemon.LampoDaemon, params json.RawMessage) (interface{}, error) {
	p, err := decodeParams[openChannelParams](params)
	if err != nil {
		return nil, err
	}
	if p.NodeID == "" {
		return nil, fmt.Errorf("fundchannel requires a `node_id`")
	}
	if _, ok := ctx.Peers().Get(p.NodeID); !ok {
		return nil, fmt.Errorf("peer `%s` is not connected, connect to it first", p.NodeID)
	}

	public := true
	if p.Public != nil {
		public = *p.Public
	}

	ch, err := ctx.Channels().Open(p.NodeID, p.AmountSat, p.PushMsat, public)
	if err != nil {
		return nil, err
	}
	ctx.Logger().Printf("[INFO] opening channel %s towards %s (%d sat)", ch.ID, ch.PeerID, ch.AmountSat)
	return ch, nil
}
