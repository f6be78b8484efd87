// Package daemon assembles lampod's shared application context: the
// configuration, the wallet, the node state managers and the signer,
// plus the external-handler chain every inbound command runs through.
package daemon

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Truja503/lampo/internal/conf"
	"github.com/Truja503/lampo/internal/daemon/handler"
	"github.com/Truja503/lampo/internal/jsonrpc"
	"github.com/Truja503/lampo/internal/node"
	"github.com/Truja503/lampo/internal/signer"
	"github.com/Truja503/lampo/internal/wallet"
)

// LampoDaemon is the application context shared by every RPC callback.
// The engine performs no synchronization on its behalf: each embedded
// manager guards its own state, and the handler chain is guarded here.
type LampoDaemon struct {
	conf   *conf.Conf
	logger *log.Logger
	wallet *wallet.Wallet

	peers    *node.PeerManager
	channels *node.ChannelManager
	invoices *node.InvoiceBook
	fees     *node.FeeEstimator
	signer   signer.Transport

	mu       sync.RWMutex
	handlers []handler.Handler

	startedAt time.Time
}

// New builds a daemon around a validated configuration and a restored
// wallet. Init must be called before the daemon serves commands.
func New(c *conf.Conf, w *wallet.Wallet) *LampoDaemon {
	return &LampoDaemon{
		conf:   c,
		wallet: w,
		logger: log.New(io.Discard, "", 0),
	}
}

// SetLogger replaces the discard logger used by default.
func (d *LampoDaemon) SetLogger(logger *log.Logger) {
	d.logger = logger
}

// Init wires up the node state managers and the in-process signer.
func (d *LampoDaemon) Init() error {
	d.peers = node.NewPeerManager()
	d.channels = node.NewChannelManager()
	d.invoices = node.NewInvoiceBook(d.wallet.NodeID())
	d.fees = node.NewFeeEstimator()
	d.signer = signer.NewInProcess(d.wallet.NodeKey())
	d.startedAt = time.Now().UTC()

	d.logger.Printf("lampod initialized as node %s on %s", d.wallet.NodeID(), d.conf.Network)
	return nil
}

func (d *LampoDaemon) Conf() *conf.Conf               { return d.conf }
func (d *LampoDaemon) Logger() *log.Logger            { return d.logger }
func (d *LampoDaemon) Wallet() *wallet.Wallet         { return d.wallet }
func (d *LampoDaemon) Peers() *node.PeerManager       { return d.peers }
func (d *LampoDaemon) Channels() *node.ChannelManager { return d.channels }
func (d *LampoDaemon) Invoices() *node.InvoiceBook    { return d.invoices }
func (d *LampoDaemon) Fees() *node.FeeEstimator       { return d.fees }
func (d *LampoDaemon) Signer() signer.Transport       { return d.signer }

// StartedAt returns the time Init completed.
func (d *LampoDaemon) StartedAt() time.Time { return d.startedAt }

// AddExternalHandler appends a handler to the dispatch chain. Handlers
// are consulted in registration order.
func (d *LampoDaemon) AddExternalHandler(h handler.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Call walks the external-handler chain until one handler claims the
// request. Exhausting the chain without a claim is a method-not-found
// application error, never a protocol one: the chain sits behind the
// transport, which owns the envelopes.
func (d *LampoDaemon) Call(ctx context.Context, req *jsonrpc.Request) (json.RawMessage, error) {
	d.mu.RLock()
	chain := append([]handler.Handler(nil), d.handlers...)
	d.mu.RUnlock()

	for _, h := range chain {
		result, claimed, err := h.Handle(ctx, req)
		if !claimed {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, jsonrpc.Errorf(jsonrpc.CodeMethodNotFound, "method `%s` not found", req.Method)
}
