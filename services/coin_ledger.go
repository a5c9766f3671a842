package services

import (
	"context"
	"log"

	"watch-rewards-system/store"
)

// DeltaReason labels why a balance moved.
type DeltaReason string

const (
	ReasonAdjustment    DeltaReason = "adjustment"
	ReasonReferralBonus DeltaReason = "referral_bonus"
	ReasonWatchReward   DeltaReason = "watch_reward"
	ReasonPurchase      DeltaReason = "purchase"
)

// BalanceObserver is told about every committed balance change.
type BalanceObserver func(ctx context.Context, userID string, balance int64)

// CoinLedger is the only path through which coins are granted or taken. The
// balance is floored at zero: a debit larger than the balance empties it
// instead of failing.
type CoinLedger struct {
	store     store.Store
	observers []BalanceObserver
}

func NewCoinLedger(s store.Store) *CoinLedger {
	return &CoinLedger{store: s}
}

// OnBalanceChanged registers fn. Call during wiring, before serving traffic.
func (l *CoinLedger) OnBalanceChanged(fn BalanceObserver) {
	l.observers = append(l.observers, fn)
}

// ApplyDelta moves userID's balance by delta and returns the new balance.
// Store errors are returned unchanged; nothing is retried.
func (l *CoinLedger) ApplyDelta(ctx context.Context, userID string, delta int64) (int64, error) {
	entry, err := l.apply(ctx, l.store, userID, delta, ReasonAdjustment)
	if err != nil {
		return 0, err
	}
	l.commit(ctx, entry)
	return entry.balance, nil
}

type ledgerEntry struct {
	userID  string
	delta   int64
	reason  DeltaReason
	balance int64
}

// apply writes through s, which may be a transaction. The caller must pass
// the entry to commit once the surrounding transaction has committed.
func (l *CoinLedger) apply(ctx context.Context, s store.Store, userID string, delta int64, reason DeltaReason) (ledgerEntry, error) {
	balance, err := s.ApplyCoinDelta(ctx, userID, delta)
	if err != nil {
		return ledgerEntry{}, err
	}
	return ledgerEntry{userID: userID, delta: delta, reason: reason, balance: balance}, nil
}

func (l *CoinLedger) commit(ctx context.Context, entries ...ledgerEntry) {
	for _, e := range entries {
		coinDeltasTotal.WithLabelValues(string(e.reason)).Inc()
		if e.delta > 0 {
			coinsIssuedTotal.WithLabelValues(string(e.reason)).Add(float64(e.delta))
		}
		log.Printf("🪙 [LEDGER] user=%s delta=%+d reason=%s balance=%d", e.userID, e.delta, e.reason, e.balance)
		for _, fn := range l.observers {
			fn(ctx, e.userID, e.balance)
		}
	}
}
