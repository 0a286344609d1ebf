package solana

import (
	"github.com/shopspring/decimal"
)

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// UITokenAmount is the RPC representation of a token quantity.
type UITokenAmount struct {
	Amount         string `json:"amount"` // raw integer amount
	Decimals       int    `json:"decimals"`
	UIAmountString string `json:"uiAmountString"`
}

// Decimal converts the amount to UI units.
// Prefers uiAmountString and falls back to amount / 10^decimals.
func (a UITokenAmount) Decimal() decimal.Decimal {
	if a.UIAmountString != "" {
		if d, err := decimal.NewFromString(a.UIAmountString); err == nil {
			return d
		}
	}
	raw, err := decimal.NewFromString(a.Amount)
	if err != nil {
		return decimal.Zero
	}
	return raw.Shift(int32(-a.Decimals))
}

// TokenBalance is a pre/post token balance entry of a transaction.
type TokenBalance struct {
	AccountIndex  int           `json:"accountIndex"`
	Mint          string        `json:"mint"`
	Owner         string        `json:"owner"`
	UITokenAmount UITokenAmount `json:"uiTokenAmount"`
}

// TokenAccountBalance is an entry of getTokenLargestAccounts.
type TokenAccountBalance struct {
	Address string
	Amount  UITokenAmount
}

// TokenAccount is a parsed SPL token account.
type TokenAccount struct {
	Address string
	Mint    string
	Owner   string
	Amount  UITokenAmount
}

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Shift(-9)
}
