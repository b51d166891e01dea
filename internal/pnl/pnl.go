// Package pnl converts raw entry/exit prices into a realized profit-and-loss
// percentage net of modeled execution costs.
package pnl

import "cryptoSignalBot/internal/domain"

// Settle returns the net PNL percentage for a round trip, with slippage
// applied unfavorably on both legs (a long buys higher and sells lower, a
// short the inverse) and the fee charged on entry and exit.
//
// Deterministic and side-effect free. Non-finite inputs propagate as
// non-finite output; callers guard prices before settling.
func Settle(side domain.PositionSide, entryPrice, exitPrice, slippagePct, feePct float64) float64 {
	slip := slippagePct / 100.0

	var rawPct float64
	if side == domain.Long {
		effEntry := entryPrice * (1 + slip)
		effExit := exitPrice * (1 - slip)
		rawPct = (effExit - effEntry) / effEntry * 100.0
	} else {
		effEntry := entryPrice * (1 - slip)
		effExit := exitPrice * (1 + slip)
		rawPct = (effEntry - effExit) / effEntry * 100.0
	}

	return rawPct - 2.0*feePct
}

// RoundTripCostPct returns the execution cost of a full round trip in
// percent: both slippage legs plus both fee legs. The configured minimum
// take-profit distance must clear this with a safety margin.
func RoundTripCostPct(slippagePct, feePct float64) float64 {
	return 2.0*slippagePct + 2.0*feePct
}
