package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletRegistryImpl is an in-memory ledger of named balances.
// Every mutation is applied under one lock, so Snapshot never observes a half-applied change.
type WalletRegistryImpl struct {
	mu        sync.RWMutex
	wallets   map[string]entity.Wallet
	order     []string
	version   uint64
	listeners []func(entity.WalletsSnapshot)
	logger    port.Logger
	now       func() time.Time
}

var _ port.WalletRegistry = (*WalletRegistryImpl)(nil)

// NewWalletRegistry creates an empty registry.
func NewWalletRegistry(logger port.Logger) *WalletRegistryImpl {
	return &WalletRegistryImpl{
		wallets: make(map[string]entity.Wallet),
		logger:  logger,
		now:     time.Now,
	}
}

// OnChange registers fn to receive a snapshot after every committed mutation.
// Snapshots may arrive out of order under concurrent mutation; compare Version.
func (r *WalletRegistryImpl) OnChange(fn func(entity.WalletsSnapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Add creates a wallet with an opening balance (which may be zero).
func (r *WalletRegistryImpl) Add(name string, balance decimal.Decimal) (entity.Wallet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entity.Wallet{}, &entity.ValidationError{Field: "name", Reason: "wallet name is required"}
	}
	if balance.IsNegative() {
		return entity.Wallet{}, &entity.ValidationError{Field: "balance", Reason: "opening balance cannot be negative", Err: entity.ErrInvalidAmount}
	}

	r.mu.Lock()
	if r.nameTakenLocked(name, "") {
		r.mu.Unlock()
		return entity.Wallet{}, &entity.ValidationError{Field: "name", Reason: fmt.Sprintf("wallet %q already exists", name), Err: entity.ErrDuplicateWallet}
	}
	now := r.now()
	w := entity.Wallet{
		ID:        uuid.NewString(),
		Name:      name,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.wallets[w.ID] = w
	r.order = append(r.order, w.ID)
	snap := r.commitLocked()
	r.mu.Unlock()

	r.logger.Info("Wallet added", "id", w.ID, "name", w.Name)
	r.notify(snap)
	return w, nil
}

// Rename changes the display name of a wallet.
func (r *WalletRegistryImpl) Rename(id, name string) (entity.Wallet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entity.Wallet{}, &entity.ValidationError{Field: "name", Reason: "wallet name is required"}
	}
	return r.update(id, func(w *entity.Wallet) error {
		if r.nameTakenLocked(name, id) {
			return &entity.ValidationError{Field: "name", Reason: fmt.Sprintf("wallet %q already exists", name), Err: entity.ErrDuplicateWallet}
		}
		w.Name = name
		return nil
	})
}

// Remove deletes a wallet.
func (r *WalletRegistryImpl) Remove(id string) error {
	r.mu.Lock()
	if _, ok := r.wallets[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("remove %s: %w", id, entity.ErrWalletNotFound)
	}
	delete(r.wallets, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	snap := r.commitLocked()
	r.mu.Unlock()

	r.logger.Info("Wallet removed", "id", id)
	r.notify(snap)
	return nil
}

// Deposit adds a positive amount to a wallet.
func (r *WalletRegistryImpl) Deposit(id string, amount decimal.Decimal) (entity.Wallet, error) {
	if !amount.IsPositive() {
		return entity.Wallet{}, &entity.ValidationError{Field: "amount", Reason: "deposit must be positive", Err: entity.ErrInvalidAmount}
	}
	return r.update(id, func(w *entity.Wallet) error {
		w.Balance = w.Balance.Add(amount)
		return nil
	})
}

// Withdraw removes a positive amount from a wallet. The balance cannot go below zero.
func (r *WalletRegistryImpl) Withdraw(id string, amount decimal.Decimal) (entity.Wallet, error) {
	if !amount.IsPositive() {
		return entity.Wallet{}, &entity.ValidationError{Field: "amount", Reason: "withdrawal must be positive", Err: entity.ErrInvalidAmount}
	}
	return r.update(id, func(w *entity.Wallet) error {
		if w.Balance.LessThan(amount) {
			return &entity.ValidationError{
				Field:  "amount",
				Reason: fmt.Sprintf("withdrawal of %s exceeds balance %s", amount, w.Balance),
				Err:    entity.ErrInsufficientFunds,
			}
		}
		w.Balance = w.Balance.Sub(amount)
		return nil
	})
}

// Get returns one wallet.
func (r *WalletRegistryImpl) Get(id string) (entity.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return entity.Wallet{}, fmt.Errorf("get %s: %w", id, entity.ErrWalletNotFound)
	}
	return w, nil
}

// Snapshot returns a consistent copy of every wallet and their total.
func (r *WalletRegistryImpl) Snapshot() entity.WalletsSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *WalletRegistryImpl) update(id string, mutate func(w *entity.Wallet) error) (entity.Wallet, error) {
	r.mu.Lock()
	w, ok := r.wallets[id]
	if !ok {
		r.mu.Unlock()
		return entity.Wallet{}, fmt.Errorf("update %s: %w", id, entity.ErrWalletNotFound)
	}
	if err := mutate(&w); err != nil {
		r.mu.Unlock()
		return entity.Wallet{}, err
	}
	w.UpdatedAt = r.now()
	r.wallets[id] = w
	snap := r.commitLocked()
	r.mu.Unlock()

	r.logger.Debug("Wallet updated", "id", id, "balance", w.Balance.String())
	r.notify(snap)
	return w, nil
}

func (r *WalletRegistryImpl) nameTakenLocked(name, exceptID string) bool {
	for id, w := range r.wallets {
		if id != exceptID && strings.EqualFold(w.Name, name) {
			return true
		}
	}
	return false
}

func (r *WalletRegistryImpl) commitLocked() entity.WalletsSnapshot {
	r.version++
	return r.snapshotLocked()
}

func (r *WalletRegistryImpl) snapshotLocked() entity.WalletsSnapshot {
	snap := entity.WalletsSnapshot{
		Wallets: make([]entity.Wallet, 0, len(r.order)),
		Total:   decimal.Zero,
		Version: r.version,
	}
	for _, id := range r.order {
		w := r.wallets[id]
		snap.Wallets = append(snap.Wallets, w)
		snap.Total = snap.Total.Add(w.Balance)
	}
	return snap
}

func (r *WalletRegistryImpl) notify(snap entity.WalletsSnapshot) {
	r.mu.RLock()
	listeners := append([]func(entity.WalletsSnapshot){}, r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}
}
