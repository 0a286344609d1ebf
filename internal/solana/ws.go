package solana

import "context"

// LogSubscriber streams logsSubscribe notifications for transactions that
// reference an account. The live feed subscribes with the tracked mint so
// every transfer or swap of the token surfaces as one notification.
type LogSubscriber interface {
	// SubscribeLogs opens a logsSubscribe stream for filter. The channel is
	// closed when the connection drops or the subscriber is closed.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	Close() error
}

// LogsFilter selects the "mentions" form of logsSubscribe.
type LogsFilter struct {
	// Mentions holds account addresses, normally just the mint. The node
	// accepts a single address; empty selects "all".
	Mentions []string
}

// LogNotification carries the signature of a transaction that referenced a
// subscribed account. Token balances are not included and must be fetched
// with getTransaction.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{} // transaction error from the node, nil on success
}

// Failed reports whether the notified transaction was rejected on chain.
// Failed transactions leave token balances unchanged.
func (n LogNotification) Failed() bool {
	return n.Err != nil
}
