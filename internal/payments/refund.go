// Package payments holds the refund collaborator invoked on cancellation.
package payments

import (
	"context"
	"fmt"

	"github.com/mentorway/mentorway-be/internal/storage"
)

// Result describes an applied refund.
type Result struct {
	SessionID int64   `json:"sessionId"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
}

// Refunder applies a credit from mentor back to client for a canceled session.
type Refunder interface {
	Refund(ctx context.Context, clientID, mentorID int64, amount float64, sessionID int64) (Result, error)
}

// WalletRefunder moves the amount between the two wallets in one
// storage-level transaction.
type WalletRefunder struct {
	users storage.UserStore
}

// NewWalletRefunder wires the refunder to the user store.
func NewWalletRefunder(users storage.UserStore) *WalletRefunder {
	return &WalletRefunder{users: users}
}

// Refund credits the client from the mentor's wallet.
func (r *WalletRefunder) Refund(ctx context.Context, clientID, mentorID int64, amount float64, sessionID int64) (Result, error) {
	if amount < 0 {
		return Result{}, fmt.Errorf("refund amount %.2f is negative", amount)
	}
	if err := r.users.Transfer(ctx, mentorID, clientID, amount); err != nil {
		return Result{}, fmt.Errorf("refund session %d: %w", sessionID, err)
	}
	return Result{SessionID: sessionID, Amount: amount, Status: "refunded"}, nil
}
