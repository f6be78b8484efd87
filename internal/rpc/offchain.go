package rpc

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Truja503/lampo/internal/daemon"
	"github.com/Truja503/lampo/internal/node"
	"github.com/Truja503/lampo/internal/signer"
)

type invoiceParams struct {
	AmountMsat  uint64 `json:"amount_msat,omitempty"`
	Description string `json:"description,omitempty"`
	Label       string `json:"label,omitempty"`
	ExpirySecs  int64  `json:"expiry_secs,omitempty"`
}

// Invoice issues a fresh payment request.
func Invoice(ctx *daemon.LampoDaemon, params json.RawMessage) (interface{}, error) {
	p, err := decodeParams[invoiceParams](params)
	if err != nil {
		return nil, err
	}

	inv, err := ctx.Invoices().NewInvoice(
		p.AmountMsat, p.Description, p.Label, time.Duration(p.ExpirySecs)*time.Second)
	if err != nil {
		return nil, err
	}
	ctx.Logger().Printf("[INFO] issued invoice %s (hash %s)", inv.Label, inv.PaymentHash)
	return inv, nil
}

type offerParams struct {
	AmountMsat  uint64 `json:"amount_msat,omitempty"`
	Description string `json:"description,omitempty"`
}

// Offer issues a reusable offer.
func Offer(ctx *daemon.LampoDaemon, params json.RawMessage) (interface{}, error) {
	p, err := decodeParams[offerParams](params)
	if err != nil {
		return nil, err
	}

	offer, err := ctx.Invoices().NewOffer(p.AmountMsat, p.Description)
	if err != nil {
		return nil, err
	}
	return offer, nil
}

type decodeInvoiceParams struct {
	Invoice string `json:"invoice"`
}

// DecodeInvoice decodes a payment request without paying it.
func DecodeInvoice(ctx *daemon.LampoDaemon, params json.RawMessage) (interface{}, error) {
	p, err := decodeParams[decodeInvoiceParams](params)
	if err != nil {
		return nil, err
	}
	if p.Invoice == "" {
		return nil, fmt.Errorf("decode requires an `invoice`")
	}
	return ctx.Invoices().Decode(p.Invoice)
}

type payParams struct {
	Invoice    string `json:"invoice"`
	AmountMsat uint64 `json:"amount_msat,omitempty"`
}

// PayResult wraps a settled payment with the signature authorizing the
// payment attempt, produced through the signer transport.
type PayResult struct {
	*node.Payment
	Signature string `json:"signature"`
}

// Pay settles an invoice.
func Pay(ctx *daemon.LampoDaemon, params json.RawMessage) (interface{}, error) {
	p, err := decodeParams[payParams](params)
	if err != nil {
		return nil, err
	}
	if p.Invoice == "" {
		return nil, fmt.Errorf("pay requires an `invoice`")
	}

	payment, err := ctx.Invoices().Pay(p.Invoice, p.AmountMsat)
	if err != nil {
		return nil, err
	}
	sig, err := authorizePayment(ctx, payment)
	if err != nil {
		return nil, err
	}
	ctx.Logger().Printf("[INFO] paid %d msat to %s", payment.AmountMsat, payment.Destination)
	return &PayResult{Payment: payment, Signature: sig}, nil
}

type keysendParams struct {
	Destination string `json:"destination"`
	AmountMsat  uint64 `json:"amount_msat"`
}

// Keysend pushes a spontaneous payment to a node without an invoice.
func Keysend(ctx *daemon.LampoDaemon, params json.RawMessage) (interface{}, error) {
	p, err := decodeParams[keysendParams](params)
	if err != nil {
		return nil, err
	}
	if p.Destination == "" {
		return nil, fmt.Errorf("keysend requires a `destination`")
	}

	payment, err := ctx.Invoices().Keysend(p.Destination, p.AmountMsat)
	if err != nil {
		return nil, err
	}
	sig, err := authorizePayment(ctx, payment)
	if err != nil {
		return nil, err
	}
	ctx.Logger().Printf("[INFO] keysend of %d msat to %s", payment.AmountMsat, payment.Destination)
	return &PayResult{Payment: payment, Signature: sig}, nil
}

// authorizePayment signs the payment hash with the node key through the
// signer transport, keeping key use out of the daemon process logic.
func authorizePayment(ctx *daemon.LampoDaemon, payment *node.Payment) (string, error) {
	hash, err := hex.DecodeString(payment.PaymentHash)
	if err != nil {
		return "", err
	}
	var digest [sha256.Size]byte
	copy(digest[:], hash)

	sig, err := signer.SignDigest(ctx.Signer(), digest)
	if err != nil {
		return "", fmt.Errorf("authorizing payment %s: %w", payment.PaymentHash, err)
	}
	return hex.EncodeToString(sig), nil
}
