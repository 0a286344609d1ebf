package domain

import "github.com/shopspring/decimal"

// Holder represents one ranked holder of the tracked token.
// Corresponds to holders table in PostgreSQL.
type Holder struct {
	Address       string          // owner wallet address (unique within a snapshot)
	TokenAmount   decimal.Decimal // tracked token amount (UI units)
	NativeBalance decimal.Decimal // SOL balance
	Rank          int             // 1..N by descending TokenAmount
	LastUpdated   int64           // snapshot time (ms)
}

// Clone returns a copy of h.
func (h *Holder) Clone() *Holder {
	c := *h
	return &c
}
