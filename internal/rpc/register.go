package rpc

import (
	"github.com/Truja503/lampo/internal/daemon"
	"github.com/Truja503/lampo/internal/jsonrpc"
)

// Methods returns lampod's full command table, keyed by wire method
// name.
func Methods() map[string]jsonrpc.Method[daemon.LampoDaemon] {
	return map[string]jsonrpc.Method[daemon.LampoDaemon]{
		"getinfo":     GetInfo,
		"connect":     Connect,
		"fundchannel": OpenChannel,
		"newaddr":     NewAddr,
		"channels":    ListChannels,
		"funds":       Funds,
		"invoice":     Invoice,
		"offer":       Offer,
		"decode":      DecodeInvoice,
		"pay":         Pay,
		"keysend":     Keysend,
		"fees":        EstimateFees,
		"close":       CloseChannel,
	}
}

// RegisterAll populates a server's method table with every daemon
// method. Called exactly once, before the server starts accepting.
func RegisterAll(srv *jsonrpc.Server[daemon.LampoDaemon]) error {
	for name, callback := range Methods() {
		if err := srv.Register(name, callback); err != nil {
			return err
		}
	}
	return nil
}
