package rpc

import (
	"encoding/json"
	"time"

	"github.com/Truja503/lampo/internal/daemon"
)

// GetInfoResult is the `getinfo` response body.
type GetInfoResult struct {
	NodeID        string `json:"node_id"`
	Alias         string `json:"alias"`
	Network       string `json:"network"`
	Peers         int    `json:"peers"`
	Channels      int    `json:"channels"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Version       string `json:"version"`
}

// Version is stamped by the command wiring so the daemon reports the
// same version as the CLI.
var Version = "dev"

// GetInfo reports the node identity and a summary of its state.
func GetInfo(ctx *daemon.LampoDaemon, params json.RawMessage) (interface{}, error) {
	ctx.Logger().Printf("[DEBUG] calling `getinfo` with params `%s`", params)

	return &GetInfoResult{
		NodeID:        ctx.Wallet().NodeID(),
		Alias:         ctx.Conf().Alias,
		Network:       ctx.Conf().Network,
		Peers:         ctx.Peers().Len(),
		Channels:      ctx.Channels().Len(),
		UptimeSeconds: int64(time.Since(ctx.StartedAt()) / time.Second),
		Version:       Version,
	}, nil
}
