package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/Truja503/lampo/internal/daemon"
	"github.com/Truja503/lampo/internal/node"
)

// ListChannelsResult is the `channels` response body.
type ListChannelsResult struct {
	Channels []*node.Channel `json:"channels"`
}

// ListChannels lists every channel this node has funded, in any state.
func ListChannels(ctx *daemon.LampoDaemon, params json.RawMessage) (interface{}, error) {
	return &ListChannelsResult{Channels: ctx.Channels().List()}, nil
}

type closeChannelParams struct {
	ChannelID string `json:"channel_id"`
}

// CloseChannel initiates a cooperative close of one channel.
func CloseChannel(ctx *daemon.LampoDaemon, params json.RawMessage) (interface{}, error) {
	p, err := decodeParams[closeChannelParams](params)
	if err != nil {
		return nil, err
	}
	if p.ChannelID == "" {
		return nil, fmt.Errorf("close requires a `channel_id`")
	}

	ch, err := ctx.Channels().Close(p.ChannelID)
	if err != nil {
		return nil, err
	}
	ctx.Logger().Printf("[INFO] closing channel %s with %s", ch.ID, ch.PeerID)
	return ch, nil
}
