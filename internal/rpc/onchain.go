package rpc

import (
	"encoding/json"

	"github.com/Truja503/lampo/internal/daemon"
	"github.com/Truja503/lampo/internal/node"
	"github.com/Truja503/lampo/internal/wallet"
)

// NewAddrResult is the `newaddr` response body.
type NewAddrResult struct {
	Address string `json:"address"`
}

// NewAddr derives a fresh on-chain receive address.
func NewAddr(ctx *daemon.LampoDaemon, params json.RawMessage) (interface{}, error) {
	addr, err := ctx.Wallet().NewAddress()
	if err != nil {
		return nil, err
	}
	ctx.Logger().Printf("[INFO] derived new address %s", addr)
	return &NewAddrResult{Address: addr}, nil
}

// FundsResult is the `funds` response body.
type FundsResult struct {
	Outputs  []wallet.Utxo `json:"outputs"`
	TotalSat uint64        `json:"total_sat"`
}

// Funds lists the wallet's spendable outputs.
func Funds(ctx *daemon.LampoDaemon, params json.RawMessage) (interface{}, error) {
	utxos, total := ctx.Wallet().ListFunds()
	return &FundsResult{Outputs: utxos, TotalSat: total}, nil
}

type estimateFeesParams struct {
	// Target asks for one confirmation target; zero means quote them
	// all.
	Target int `json:"target,omitempty"`
}

// EstimateFeesResult is the `fees` response body.
type EstimateFeesResult struct {
	FloorSatPerKw uint64         `json:"floor_sat_per_kw"`
	PerTarget     map[int]uint64 `json:"per_target,omitempty"`
	SatPerKw      uint64         `json:"sat_per_kw,omitempty"`
}

// EstimateFees quotes feerates for one or all confirmation targets.
func EstimateFees(ctx *daemon.LampoDaemon, params json.RawMessage) (interface{}, error) {
	p, err := decodeParams[estimateFeesParams](params)
	if err != nil {
		return nil, err
	}

	result := &EstimateFeesResult{FloorSatPerKw: node.FeeFloorSatPerKw}
	if p.Target == 0 {
		result.PerTarget = ctx.Fees().Estimates()
		return result, nil
	}

	rate, err := ctx.Fees().Estimate(p.Target)
	if err != nil {
		return nil, err
	}
	result.SatPerKw = rate
	return result, nil
}
