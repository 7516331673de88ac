package records

import (
	"errors"

	"paygate/core/types"
	"paygate/crypto"
)

var errInvalidStatus = errors.New("invalid status byte")

// AccountReader is the slice of the state manager the loaders need.
type AccountReader interface {
	GetAccount(addr crypto.Address) (*types.Account, bool, error)
}

func loadOwned(state AccountReader, program, addr crypto.Address) (*types.Account, error) {
	acc, ok, err := state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if acc.Owner != program {
		return nil, ErrWrongOwner
	}
	return acc, nil
}

// LoadMerchant reads and validates the merchant record at addr: the account
// must exist, be owned by the payment program and hold an initialized record.
func LoadMerchant(state AccountReader, program, addr crypto.Address) (*MerchantAccount, error) {
	acc, err := loadOwned(state, program, addr)
	if err != nil {
		return nil, err
	}
	record, err := DecodeMerchant(acc.Data)
	if err != nil {
		return nil, err
	}
	if !record.Initialized() {
		return nil, ErrUninitialized
	}
	return record, nil
}

// LoadOrder reads and validates the order record at addr.
func LoadOrder(state AccountReader, program, addr crypto.Address) (*OrderAccount, error) {
	acc, err := loadOwned(state, program, addr)
	if err != nil {
		return nil, err
	}
	record, err := DecodeOrder(acc.Data)
	if err != nil {
		return nil, err
	}
	if !record.Initialized() {
		return nil, ErrUninitialized
	}
	return record, nil
}

// LoadSubscription reads and validates the subscription record at addr.
func LoadSubscription(state AccountReader, program, addr crypto.Address) (*SubscriptionAccount, error) {
	acc, err := loadOwned(state, program, addr)
	if err != nil {
		return nil, err
	}
	record, err := DecodeSubscription(acc.Data)
	if err != nil {
		return nil, err
	}
	if !record.Initialized() {
		return nil, ErrUninitialized
	}
	return record, nil
}
