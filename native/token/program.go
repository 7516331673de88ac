// Package token models the ledger's fungible-token primitive at its
// interface boundary. The payment processor never touches token balances
// directly; it asks this program to move them, and custodial moves must
// present a verifiable address derivation in place of a signature.
package token

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"paygate/core/types"
	"paygate/crypto"
	"paygate/native/pda"
)

var (
	// ErrAccountNotFound is returned for unallocated token addresses.
	ErrAccountNotFound = errors.New("token: account not found")
	// ErrWrongProgram is returned when an account is not owned by the
	// token program.
	ErrWrongProgram = errors.New("token: account not owned by token program")
	// ErrMintMismatch is returned when a transfer crosses mints.
	ErrMintMismatch = errors.New("token: mint mismatch")
	// ErrUnauthorized is returned when the transfer authority does not
	// own the source account.
	ErrUnauthorized = errors.New("token: transfer authority mismatch")
	// ErrInsufficientFunds is returned when the source balance is too low.
	ErrInsufficientFunds = errors.New("token: insufficient funds")
	// ErrCorrupt is returned when token account data cannot be decoded.
	ErrCorrupt = errors.New("token: corrupt account data")
)

// Account is the decoded content of a token account.
type Account struct {
	Mint   crypto.Address
	Owner  crypto.Address
	Amount uint64
}

type storedToken struct {
	Mint   [crypto.AddressLength]byte
	Owner  [crypto.AddressLength]byte
	Amount uint64
}

type ledgerState interface {
	GetAccount(addr crypto.Address) (*types.Account, bool, error)
	PutAccount(addr crypto.Address, acc *types.Account) error
	CreateAccount(addr, owner, funder crypto.Address, size int) (*types.Account, error)
}

// Program is the token primitive bound to a ledger state backend.
type Program struct {
	id    crypto.Address
	state ledgerState
}

// NewProgram binds the token program identity to the state backend.
func NewProgram(id crypto.Address, state ledgerState) *Program {
	return &Program{id: id, state: state}
}

// ID returns the token program identity.
func (p *Program) ID() crypto.Address { return p.id }

func encodeToken(acc *Account) ([]byte, error) {
	return rlp.EncodeToBytes(&storedToken{Mint: acc.Mint, Owner: acc.Owner, Amount: acc.Amount})
}

// Account loads and validates the token account at addr.
func (p *Program) Account(addr crypto.Address) (*Account, error) {
	raw, ok, err := p.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccountNotFound
	}
	if raw.Owner != p.id {
		return nil, ErrWrongProgram
	}
	stored := new(storedToken)
	if err := rlp.DecodeBytes(raw.Data, stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &Account{Mint: crypto.Address(stored.Mint), Owner: crypto.Address(stored.Owner), Amount: stored.Amount}, nil
}

// InitializeAccount allocates a fresh token account for the given mint and
// owner, funded by the funder's native balance. Allocation failures from the
// system collaborator propagate unchanged.
func (p *Program) InitializeAccount(addr, mint, owner, funder crypto.Address) error {
	record := &Account{Mint: mint, Owner: owner}
	encoded, err := encodeToken(record)
	if err != nil {
		return err
	}
	created, err := p.state.CreateAccount(addr, p.id, funder, len(encoded))
	if err != nil {
		return err
	}
	created.Data = encoded
	return p.state.PutAccount(addr, created)
}

func (p *Program) write(addr crypto.Address, acc *Account) error {
	raw, ok, err := p.state.GetAccount(addr)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccountNotFound
	}
	encoded, err := encodeToken(acc)
	if err != nil {
		return err
	}
	raw.Data = encoded
	return p.state.PutAccount(addr, raw)
}

func (p *Program) move(from, to crypto.Address, amount uint64) error {
	source, err := p.Account(from)
	if err != nil {
		return err
	}
	dest, err := p.Account(to)
	if err != nil {
		return err
	}
	if source.Mint != dest.Mint {
		return ErrMintMismatch
	}
	if source.Amount < amount {
		return ErrInsufficientFunds
	}
	source.Amount -= amount
	dest.Amount += amount
	if err := p.write(from, source); err != nil {
		return err
	}
	return p.write(to, dest)
}

// Mint credits freshly issued units to a token account. Mint-authority
// enforcement lives with the host token program; this entry point exists for
// genesis funding and tests.
func (p *Program) Mint(addr crypto.Address, amount uint64) error {
	acc, err := p.Account(addr)
	if err != nil {
		return err
	}
	acc.Amount += amount
	return p.write(addr, acc)
}

// Transfer moves amount between token accounts under the authority of the
// source owner. Callers guarantee the authority signed the enclosing
// transaction.
func (p *Program) Transfer(from, to, authority crypto.Address, amount uint64) error {
	source, err := p.Account(from)
	if err != nil {
		return err
	}
	if source.Owner != authority {
		return ErrUnauthorized
	}
	return p.move(from, to, amount)
}

// TransferSigned moves amount out of a program-custodied account. The
// derivation proof stands in for a signature: it must reproduce under the
// authorizing program's identity and match the source account owner.
func (p *Program) TransferSigned(from, to crypto.Address, auth pda.Derivation, authProgram crypto.Address, amount uint64) error {
	if err := pda.Verify(authProgram, auth); err != nil {
		return err
	}
	source, err := p.Account(from)
	if err != nil {
		return err
	}
	if source.Owner != auth.Address {
		return ErrUnauthorized
	}
	return p.move(from, to, amount)
}
