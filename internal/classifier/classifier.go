// Package classifier maps raw ledger transactions to buy/sell/transfer records.
package classifier

import (
	"github.com/shopspring/decimal"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/ledger"
)

// Classifier classifies transactions touching one tracked mint.
// It holds no mutable state; Classify is safe for concurrent use.
type Classifier struct {
	mint      string
	protocols ProtocolTable
}

// New creates a classifier for mint. A nil protocols table uses DefaultProtocols.
func New(mint string, protocols ProtocolTable) *Classifier {
	if protocols == nil {
		protocols = DefaultProtocols()
	}
	return &Classifier{mint: mint, protocols: protocols}
}

// Mint returns the tracked mint.
func (c *Classifier) Mint() string {
	return c.mint
}

// Protocols returns the protocol table in detection order.
func (c *Classifier) Protocols() ProtocolTable {
	return c.protocols
}

// Classify normalizes raw relative to wallet. With an empty wallet the first
// tracked-mint pre-balance entry is used. The second return is false when no
// pre-balance entry carries the tracked mint.
//
// The owner's post balance is matched by owner, then by account index; a
// missing post entry counts as zero (account closed).
func (c *Classifier) Classify(raw ledger.RawTransaction, wallet string) (domain.Transaction, bool) {
	pre, ok := c.selectPre(raw.PreTokenBalances, wallet)
	if !ok {
		return domain.Transaction{}, false
	}

	postAmount := decimal.Zero
	if post, ok := c.matchPost(raw.PostTokenBalances, pre); ok {
		postAmount = post.Amount
	}

	delta := postAmount.Sub(pre.Amount)
	direction := domain.DirectionTransfer
	switch delta.Sign() {
	case 1:
		direction = domain.DirectionBuy
	case -1:
		direction = domain.DirectionSell
	}

	return domain.Transaction{
		Signature:     raw.Signature,
		WalletAddress: pre.Owner,
		Amount:        delta.Abs(),
		Direction:     direction,
		Protocol:      c.protocols.Detect(raw.ProgramIDs),
		Timestamp:     raw.BlockTime,
		Success:       raw.Err == nil,
	}, true
}

// Owners returns the distinct owners of tracked-mint pre-balance entries in
// ledger order.
func (c *Classifier) Owners(raw ledger.RawTransaction) []string {
	seen := make(map[string]struct{}, len(raw.PreTokenBalances))
	var owners []string
	for _, b := range raw.PreTokenBalances {
		if b.Mint != c.mint || b.Owner == "" {
			continue
		}
		if _, dup := seen[b.Owner]; dup {
			continue
		}
		seen[b.Owner] = struct{}{}
		owners = append(owners, b.Owner)
	}
	return owners
}

func (c *Classifier) selectPre(balances []ledger.TokenBalance, wallet string) (ledger.TokenBalance, bool) {
	var (
		first ledger.TokenBalance
		found bool
	)
	for _, b := range balances {
		if b.Mint != c.mint {
			continue
		}
		if wallet != "" && b.Owner == wallet {
			return b, true
		}
		if !found {
			first, found = b, true
		}
	}
	return first, found
}

func (c *Classifier) matchPost(balances []ledger.TokenBalance, pre ledger.TokenBalance) (ledger.TokenBalance, bool) {
	if pre.Owner != "" {
		for _, b := range balances {
			if b.Mint == c.mint && b.Owner == pre.Owner {
				return b, true
			}
		}
	}
	for _, b := range balances {
		if b.Mint == c.mint && b.AccountIndex == pre.AccountIndex {
			return b, true
		}
	}
	return ledger.TokenBalance{}, false
}
