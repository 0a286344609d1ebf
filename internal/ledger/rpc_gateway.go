package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"solana-holder-tracker/internal/solana"
)

// HolderMode selects how FetchTopHolders discovers token accounts.
type HolderMode string

const (
	// HolderModeLargest uses getTokenLargestAccounts (at most 20 accounts).
	HolderModeLargest HolderMode = "largest"
	// HolderModeScan walks every token account of the mint via getProgramAccounts.
	HolderModeScan HolderMode = "scan"
)

// Default gateway limits.
const (
	DefaultRequestsPerSecond = 10
	DefaultBurst             = 5
)

// RPCGateway implements Gateway on top of a Solana JSON-RPC client.
type RPCGateway struct {
	client  solana.RPCClient
	limiter *rate.Limiter
	mode    HolderMode
	logger  *zap.Logger
}

// GatewayOption configures RPCGateway.
type GatewayOption func(*RPCGateway)

// WithRateLimit limits outgoing RPC calls. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) GatewayOption {
	return func(g *RPCGateway) {
		if rps <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHolderMode sets the holder discovery mode.
func WithHolderMode(mode HolderMode) GatewayOption {
	return func(g *RPCGateway) {
		g.mode = mode
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) GatewayOption {
	return func(g *RPCGateway) {
		g.logger = logger
	}
}

// NewRPCGateway creates a gateway over client.
func NewRPCGateway(client solana.RPCClient, opts ...GatewayOption) *RPCGateway {
	g := &RPCGateway{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultBurst),
		mode:    HolderModeLargest,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.Named("ledger")
	return g
}

var _ Gateway = (*RPCGateway)(nil)

// unavailable wraps err so that both ErrUnavailable and err match errors.Is.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func (g *RPCGateway) wait(ctx context.Context, op string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return unavailable(op, err)
	}
	return nil
}

// FetchTopHolders lists token accounts of mint, resolves owners and aggregates
// per owner in first-seen order. When more than limit owners remain, the list
// is sorted by descending amount (stable) and truncated.
func (g *RPCGateway) FetchTopHolders(ctx context.Context, mint string, limit int) ([]RawHolder, error) {
	var (
		accounts []solana.TokenAccount
		err      error
	)
	switch g.mode {
	case HolderModeScan:
		accounts, err = g.scanAccounts(ctx, mint)
	default:
		accounts, err = g.largestAccounts(ctx, mint)
	}
	if err != nil {
		return nil, err
	}

	holders := aggregateByOwner(accounts, mint)
	for _, h := range holders {
		if !solana.IsOnCurve(h.Address) {
			g.logger.Debug("holder owner is off curve (program owned)", zap.String("owner", h.Address))
		}
	}

	if limit > 0 && len(holders) > limit {
		sort.SliceStable(holders, func(i, j int) bool {
			return holders[i].TokenAmount.GreaterThan(holders[j].TokenAmount)
		})
		holders = holders[:limit]
	}

	g.logger.Debug("fetched top holders",
		zap.String("mint", mint),
		zap.String("mode", string(g.mode)),
		zap.Int("accounts", len(accounts)),
		zap.Int("holders", len(holders)))
	return holders, nil
}

func (g *RPCGateway) largestAccounts(ctx context.Context, mint string) ([]solana.TokenAccount, error) {
	if err := g.wait(ctx, "getTokenLargestAccounts"); err != nil {
		return nil, err
	}
	largest, err := g.client.GetTokenLargestAccounts(ctx, mint)
	if err != nil {
		return nil, unavailable("getTokenLargestAccounts", err)
	}
	if len(largest) == 0 {
		return nil, nil
	}

	addresses := make([]string, len(largest))
	for i, a := range largest {
		addresses[i] = a.Address
	}

	if err := g.wait(ctx, "getMultipleAccounts"); err != nil {
		return nil, err
	}
	resolved, err := g.client.GetTokenAccounts(ctx, addresses)
	if err != nil {
		return nil, unavailable("getMultipleAccounts", err)
	}

	accounts := make([]solana.TokenAccount, 0, len(largest))
	for i, a := range largest {
		if i >= len(resolved) || resolved[i] == nil || resolved[i].Owner == "" {
			g.logger.Debug("token account owner unresolved", zap.String("account", a.Address))
			continue
		}
		accounts = append(accounts, solana.TokenAccount{
			Address: a.Address,
			Mint:    resolved[i].Mint,
			Owner:   resolved[i].Owner,
			Amount:  a.Amount,
		})
	}
	return accounts, nil
}

func (g *RPCGateway) scanAccounts(ctx context.Context, mint string) ([]solana.TokenAccount, error) {
	if err := g.wait(ctx, "getProgramAccounts"); err != nil {
		return nil, err
	}
	accounts, err := g.client.GetTokenAccountsByMint(ctx, mint)
	if err != nil {
		return nil, unavailable("getProgramAccounts", err)
	}
	return accounts, nil
}

// aggregateByOwner sums amounts per owner keeping first-seen order.
// Zero balances and accounts of another mint are dropped.
func aggregateByOwner(accounts []solana.TokenAccount, mint string) []RawHolder {
	index := make(map[string]int, len(accounts))
	holders := make([]RawHolder, 0, len(accounts))

	for _, a := range accounts {
		if a.Owner == "" || (a.Mint != "" && a.Mint != mint) {
			continue
		}
		amount := a.Amount.Decimal()
		if !amount.IsPositive() {
			continue
		}
		if i, ok := index[a.Owner]; ok {
			holders[i].TokenAmount = holders[i].TokenAmount.Add(amount)
			holders[i].TokenAccounts++
			continue
		}
		index[a.Owner] = len(holders)
		holders = append(holders, RawHolder{
			Address:       a.Owner,
			TokenAmount:   amount,
			TokenAccounts: 1,
		})
	}
	return holders
}

// FetchNativeBalance returns the SOL balance of address.
func (g *RPCGateway) FetchNativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if err := g.wait(ctx, "getBalance"); err != nil {
		return decimal.Zero, err
	}
	lamports, err := g.client.GetBalance(ctx, address)
	if err != nil {
		return decimal.Zero, unavailable("getBalance", err)
	}
	return solana.LamportsToSOL(lamports), nil
}

// FetchRecentTransactions lists recent signatures of address and loads each one.
// A signature that fails to load is logged and skipped.
func (g *RPCGateway) FetchRecentTransactions(ctx context.Context, address string, limit int) ([]RawTransaction, error) {
	if err := g.wait(ctx, "getSignaturesForAddress"); err != nil {
		return nil, err
	}
	sigs, err := g.client.GetSignaturesForAddress(ctx, address, &solana.SignaturesOpts{Limit: limit})
	if err != nil {
		return nil, unavailable("getSignaturesForAddress", err)
	}

	txs := make([]RawTransaction, 0, len(sigs))
	for _, sig := range sigs {
		raw, err := g.FetchTransaction(ctx, sig.Signature)
		if err != nil {
			if ctx.Err() != nil {
				return nil, unavailable("getTransaction", ctx.Err())
			}
			g.logger.Warn("skipping transaction",
				zap.String("address", address),
				zap.String("signature", sig.Signature),
				zap.Error(err))
			continue
		}
		txs = append(txs, *raw)
	}
	return txs, nil
}

// FetchTransaction loads one transaction by signature.
func (g *RPCGateway) FetchTransaction(ctx context.Context, signature string) (*RawTransaction, error) {
	if err := g.wait(ctx, "getTransaction"); err != nil {
		return nil, err
	}
	tx, err := g.client.GetTransaction(ctx, signature)
	if err != nil {
		return nil, unavailable("getTransaction", err)
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, signature)
	}
	raw := toRawTransaction(tx)
	return &raw, nil
}

func toRawTransaction(tx *solana.Transaction) RawTransaction {
	raw := RawTransaction{
		Signature: tx.Signature,
		BlockTime: tx.BlockTime * 1000,
	}

	if tx.Meta != nil {
		raw.Err = tx.Meta.Err
		raw.PreTokenBalances = toTokenBalances(tx.Meta.PreTokenBalances)
		raw.PostTokenBalances = toTokenBalances(tx.Meta.PostTokenBalances)
	}

	if tx.Message != nil {
		seen := make(map[string]struct{}, len(tx.Message.AccountKeys)+len(tx.Message.ProgramIDs))
		for _, ids := range [][]string{tx.Message.AccountKeys, tx.Message.ProgramIDs} {
			for _, id := range ids {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				raw.ProgramIDs = append(raw.ProgramIDs, id)
			}
		}
	}
	return raw
}

func toTokenBalances(in []solana.TokenBalance) []TokenBalance {
	if len(in) == 0 {
		return nil
	}
	out := make([]TokenBalance, len(in))
	for i, b := range in {
		out[i] = TokenBalance{
			AccountIndex: b.AccountIndex,
			Mint:         b.Mint,
			Owner:        b.Owner,
			Amount:       b.UITokenAmount.Decimal(),
		}
	}
	return out
}
