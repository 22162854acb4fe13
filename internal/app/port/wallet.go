package port

import (
	"portfolio_bridge/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// WalletRegistry is a ledger of named balances.
type WalletRegistry interface {
	Add(name string, balance decimal.Decimal) (entity.Wallet, error)
	Rename(id, name string) (entity.Wallet, error)
	Remove(id string) error
	Deposit(id string, amount decimal.Decimal) (entity.Wallet, error)
	Withdraw(id string, amount decimal.Decimal) (entity.Wallet, error)
	Get(id string) (entity.Wallet, error)
	Snapshot() entity.WalletsSnapshot
}
