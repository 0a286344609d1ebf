package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Direction classifies the net effect of a transaction on a holder.
type Direction string

// Direction constants
const (
	DirectionBuy      Direction = "buy"
	DirectionSell     Direction = "sell"
	DirectionTransfer Direction = "transfer"
)

// IsValid checks if the direction is a known value.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionBuy, DirectionSell, DirectionTransfer:
		return true
	}
	return false
}

// ParseDirection parses s into a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if !d.IsValid() {
		return "", fmt.Errorf("unknown direction %q", s)
	}
	return d, nil
}

// ProtocolUnknown is used when no known program participated in a transaction.
const ProtocolUnknown = "Unknown"

// Transaction is a classified ledger transaction touching the tracked token.
// Corresponds to transactions table in PostgreSQL.
type Transaction struct {
	Signature     string          // ledger signature (unique)
	WalletAddress string          // tracked holder address, empty if not tracked
	Amount        decimal.Decimal // absolute token delta
	Direction     Direction       // buy | sell | transfer
	Protocol      string          // known protocol name or ProtocolUnknown
	Timestamp     int64           // block time (ms)
	Success       bool            // false when the ledger reported an error
	UpdatedAt     int64           // last upsert time (ms)
}

// TransactionFilter narrows transaction reads. Zero values mean "no constraint".
type TransactionFilter struct {
	From          int64 // inclusive lower bound on Timestamp (ms)
	To            int64 // inclusive upper bound on Timestamp (ms)
	Direction     Direction
	Protocol      string
	WalletAddress string
	Limit         int
}

// Matches reports whether t satisfies the filter (Limit is ignored).
func (f TransactionFilter) Matches(t *Transaction) bool {
	if f.From > 0 && t.Timestamp < f.From {
		return false
	}
	if f.To > 0 && t.Timestamp > f.To {
		return false
	}
	if f.Direction != "" && t.Direction != f.Direction {
		return false
	}
	if f.Protocol != "" && t.Protocol != f.Protocol {
		return false
	}
	if f.WalletAddress != "" && t.WalletAddress != f.WalletAddress {
		return false
	}
	return true
}
