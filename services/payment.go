package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"watch-rewards-system/models"
	"watch-rewards-system/store"
)

// PaymentService handles coin purchase requests. Coins are credited when an
// admin approves the request, and only once.
type PaymentService struct {
	store  store.Store
	ledger *CoinLedger
}

func NewPaymentService(s store.Store, ledger *CoinLedger) *PaymentService {
	return &PaymentService{store: s, ledger: ledger}
}

type PaymentRequestInput struct {
	Amount    float64 `json:"amount"`
	Coins     int64   `json:"coins"`
	Method    string  `json:"method"`
	Reference string  `json:"reference"`
}

func (s *PaymentService) CreatePaymentRequest(ctx context.Context, userID string, in PaymentRequestInput) (*models.Payment, error) {
	if in.Amount <= 0 || in.Coins <= 0 {
		return nil, fmt.Errorf("%w: amount and coins must be positive", models.ErrInvalidInput)
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	p := &models.Payment{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    in.Amount,
		Coins:     in.Coins,
		Method:    strings.TrimSpace(in.Method),
		Reference: strings.TrimSpace(in.Reference),
		Status:    models.PaymentStatusPending,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.InsertPayment(ctx, p); err != nil {
		return nil, err
	}
	log.Printf("💳 [PAYMENT] %s requested by %s: %.2f for %d coins", p.ID, userID, p.Amount, p.Coins)
	return p, nil
}

// ListPayments lists payment requests, newest first. An empty status lists all.
func (s *PaymentService) ListPayments(ctx context.Context, status models.PaymentStatus) ([]models.PaymentListing, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", models.ErrInvalidInput, status)
	}
	return s.store.ListPayments(ctx, status)
}

// UpdatePaymentStatus approves or rejects a pending payment. Approval credits
// the payment's coins in the same transaction as the status change.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, paymentID string, status models.PaymentStatus) (*models.Payment, error) {
	if status != models.PaymentStatusApproved && status != models.PaymentStatusRejected {
		return nil, fmt.Errorf("%w: status must be approved or rejected", models.ErrInvalidInput)
	}

	var (
		updated *models.Payment
		entry   *ledgerEntry
	)
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		ok, err := tx.TransitionPayment(ctx, paymentID, models.PaymentStatusPending, status)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: payment %s was already reviewed", models.ErrConflict, paymentID)
		}
		updated, err = tx.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if status == models.PaymentStatusApproved {
			e, err := s.ledger.apply(ctx, tx, updated.UserID, updated.Coins, ReasonPurchase)
			if err != nil {
				return err
			}
			entry = &e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if entry != nil {
		s.ledger.commit(ctx, *entry)
	}
	log.Printf("💳 [PAYMENT] %s %s", paymentID, status)
	return updated, nil
}
