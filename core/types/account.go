package types

import (
	"math/big"

	"paygate/crypto"
)

// Account is the raw, host-allocated storage record behind every address the
// processor touches. Owner is the program that controls the record, Balance
// is denominated in the ledger's native fee-paying unit and Data carries the
// owning program's serialized record. Contents are untrusted until the owning
// engine has decoded and validated them.
type Account struct {
	Owner   crypto.Address `json:"owner"`
	Balance *big.Int       `json:"balance"`
	Data    []byte         `json:"data"`
}

// Clone returns a deep copy so callers can mutate the result without
// aliasing the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{Owner: a.Owner, Balance: big.NewInt(0)}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	if a.Data != nil {
		clone.Data = append([]byte(nil), a.Data...)
	}
	return clone
}

// Ensure normalises a possibly-nil account into a zero-valued one.
func Ensure(acc *Account) *Account {
	if acc == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

// AccountMeta is one entry in an instruction's positional account list. The
// Signer flag reflects host-verified transaction signatures; the processor
// never sees private keys.
type AccountMeta struct {
	Address  crypto.Address `json:"address"`
	Signer   bool           `json:"signer"`
	Writable bool           `json:"writable"`
}
