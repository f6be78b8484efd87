package node

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Truja503/lampo/internal/jsonrpc"
)

// Payment failure codes, matching the convention of other lightning
// daemons so client tooling can match on them.
const (
	CodeInvoiceExpired = 208
	CodeRouteNotFound  = 210
)

// invoicePrefix marks lampo's local invoice encoding on the wire.
const invoicePrefix = "lnl1"

// DefaultInvoiceExpiry is used when the caller does not ask for one.
const DefaultInvoiceExpiry = time.Hour

// InvoiceStatus tracks whether an invoice has been settled.
type InvoiceStatus string

const (
	InvoiceUnpaid InvoiceStatus = "unpaid"
	InvoicePaid   InvoiceStatus = "paid"
)

// Invoice is a payment request issued by this node. Offers share the
// shape: they are reusable invoices without a fixed amount.
type Invoice struct {
	Label       string        `json:"label"`
	Bolt11      string        `json:"bolt11"`
	PaymentHash string        `json:"payment_hash"`
	AmountMsat  uint64        `json:"amount_msat,omitempty"`
	Description string        `json:"description"`
	Status      InvoiceStatus `json:"status"`
	IsOffer     bool          `json:"is_offer,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	ExpiresAt   time.Time     `json:"expires_at"`

	preimage []byte
}

// DecodedInvoice is the public view of a decoded payment request.
type DecodedInvoice struct {
	PayeeID     string `json:"payee_id"`
	PaymentHash string `json:"payment_hash"`
	AmountMsat  uint64 `json:"amount_msat,omitempty"`
	Description string `json:"description"`
	IsOffer     bool   `json:"is_offer,omitempty"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Payment records a settled outgoing or self payment.
type Payment struct {
	PaymentHash     string    `json:"payment_hash"`
	PaymentPreimage string    `json:"payment_preimage,omitempty"`
	AmountMsat      uint64    `json:"amount_msat"`
	Destination     string    `json:"destination"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// invoiceBody is the wire payload behind the lnl1 prefix.
type invoiceBody struct {
	PayeeID     string `json:"p"`
	PaymentHash string `json:"h"`
	AmountMsat  uint64 `json:"a,omitempty"`
	Description string `json:"d,omitempty"`
	IsOffer     bool   `json:"o,omitempty"`
	ExpiresAt   int64  `json:"e"`
}

// InvoiceBook issues, decodes and settles invoices for one node.
type InvoiceBook struct {
	nodeID string

	mu       sync.Mutex
	invoices map[string]*Invoice // keyed by payment hash
	payments []*Payment
}

func NewInvoiceBook(nodeID string) *InvoiceBook {
	return &InvoiceBook{
		nodeID:   nodeID,
		invoices: make(map[string]*Invoice),
	}
}

// NewInvoice issues a fresh invoice. A zero amount means "any amount".
// An empty label gets a generated one.
func (b *InvoiceBook) NewInvoice(amountMsat uint64, description, label string, expiry time.Duration) (*Invoice, error) {
	return b.issue(amountMsat, description, label, expiry, false)
}

// NewOffer issues a reusable offer.
func (b *InvoiceBook) NewOffer(amountMsat uint64, description string) (*Invoice, error) {
	return b.issue(amountMsat, description, "", DefaultInvoiceExpiry*24, true)
}

func (b *InvoiceBook) issue(amountMsat uint64, description, label string, expiry time.Duration, offer bool) (*Invoice, error) {
	if expiry <= 0 {
		expiry = DefaultInvoiceExpiry
	}
	if label == "" {
		label = uuid.NewString()
	}

	preimage := make([]byte, 32)
	if _, err := rand.Read(preimage); err != nil {
		return nil, err
	}
	hash := sha256.Sum256(preimage)

	now := time.Now().UTC()
	inv := &Invoice{
		Label:       label,
		PaymentHash: hex.EncodeToString(hash[:]),
		AmountMsat:  amountMsat,
		Description: description,
		Status:      InvoiceUnpaid,
		IsOffer:     offer,
		CreatedAt:   now,
		ExpiresAt:   now.Add(expiry),
		preimage:    preimage,
	}
	encoded, err := encodeInvoice(&invoiceBody{
		PayeeID:     b.nodeID,
		PaymentHash: inv.PaymentHash,
		AmountMsat:  amountMsat,
		Description: description,
		IsOffer:     offer,
		ExpiresAt:   inv.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, err
	}
	inv.Bolt11 = encoded

	b.mu.Lock()
	defer b.mu.Unlock()
	b.invoices[inv.PaymentHash] = inv
	return inv, nil
}

// Decode parses an encoded payment request without touching the book.
func (b *InvoiceBook) Decode(bolt string) (*DecodedInvoice, error) {
	body, err := decodeInvoice(bolt)
	if err != nil {
		return nil, err
	}
	return &DecodedInvoice{
		PayeeID:     body.PayeeID,
		PaymentHash: body.PaymentHash,
		AmountMsat:  body.AmountMsat,
		Description: body.Description,
		IsOffer:     body.IsOffer,
		ExpiresAt:   body.ExpiresAt,
	}, nil
}

// Pay settles an invoice. Only invoices issued by a node this daemon can
// reach are payable; with no gossip backend that means invoices from the
// local book. amountMsat overrides the invoice amount only when the
// invoice leaves the amount open.
func (b *InvoiceBook) Pay(bolt string, amountMsat uint64) (*Payment, error) {
	body, err := decodeInvoice(bolt)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > body.ExpiresAt {
		return nil, jsonrpc.Errorf(CodeInvoiceExpired, "invoice with payment hash `%s` is expired", body.PaymentHash)
	}

	amount := body.AmountMsat
	if amount == 0 {
		amount = amountMsat
	}
	if amount == 0 {
		return nil, fmt.Errorf("amount-less invoice requires an explicit amount")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	inv, ok := b.invoices[body.PaymentHash]
	if !ok {
		return nil, jsonrpc.Errorf(CodeRouteNotFound, "failed to find a route to `%s`", body.PayeeID)
	}
	if inv.Status == InvoicePaid && !inv.IsOffer {
		return nil, fmt.Errorf("invoice with payment hash `%s` already paid", inv.PaymentHash)
	}

	inv.Status = InvoicePaid
	payment := &Payment{
		PaymentHash:     inv.PaymentHash,
		PaymentPreimage: hex.EncodeToString(inv.preimage),
		AmountMsat:      amount,
		Destination:     body.PayeeID,
		Status:          "complete",
		CreatedAt:       time.Now().UTC(),
	}
	b.payments = append(b.payments, payment)
	return payment, nil
}

// Keysend pushes a spontaneous payment to a destination node: the sender
// picks the preimage, so no invoice is involved.
func (b *InvoiceBook) Keysend(destination string, amountMsat uint64) (*Payment, error) {
	if amountMsat == 0 {
		return nil, fmt.Errorf("keysend amount must be positive")
	}
	preimage := make([]byte, 32)
	if _, err := rand.Read(preimage); err != nil {
		return nil, err
	}
	hash := sha256.Sum256(preimage)

	payment := &Payment{
		PaymentHash:     hex.EncodeToString(hash[:]),
		PaymentPreimage: hex.EncodeToString(preimage),
		AmountMsat:      amountMsat,
		Destination:     destination,
		Status:          "complete",
		CreatedAt:       time.Now().UTC(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.payments = append(b.payments, payment)
	return payment, nil
}

// Lookup returns an issued invoice by payment hash.
func (b *InvoiceBook) Lookup(paymentHash string) (*Invoice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	inv, ok := b.invoices[paymentHash]
	return inv, ok
}

// Payments returns settled payments in settlement order.
func (b *InvoiceBook) Payments() []*Payment {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Payment(nil), b.payments...)
}

func encodeInvoice(body *invoiceBody) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	return invoicePrefix + base64.RawURLEncoding.EncodeToString(payload), nil
}

func decodeInvoice(bolt string) (*invoiceBody, error) {
	encoded, ok := strings.CutPrefix(bolt, invoicePrefix)
	if !ok {
		return nil, fmt.Errorf("invalid invoice: missing `%s` prefix", invoicePrefix)
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice: %w", err)
	}
	var body invoiceBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("invalid invoice: %w", err)
	}
	if body.PaymentHash == "" || body.PayeeID == "" {
		return nil, fmt.Errorf("invalid invoice: missing payee or payment hash")
	}
	return &body, nil
}
