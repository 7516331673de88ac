package state

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"paygate/core/types"
	"paygate/crypto"
	"paygate/storage"
)

var (
	// ErrAccountExists is returned when allocation targets an address that
	// already holds a record.
	ErrAccountExists = errors.New("state: account already exists")
	// ErrUnknownFunder is returned when the account paying for an
	// allocation does not exist.
	ErrUnknownFunder = errors.New("state: unknown funding account")
	// ErrInsufficientFunds is returned when a native-unit movement exceeds
	// the source balance.
	ErrInsufficientFunds = errors.New("state: insufficient native balance")
)

var accountPrefix = []byte("account:")

func accountKey(addr crypto.Address) []byte {
	buf := make([]byte, len(accountPrefix)+crypto.AddressLength)
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr[:])
	return ethcrypto.Keccak256(buf)
}

// Rent parameters of the host ledger. Allocation funds new records with the
// exemption minimum; engines re-verify the bound after writing.
const (
	rentBase    uint64 = 890_880
	rentPerByte uint64 = 6_960
)

// MinBalance returns the native balance a record of the given size must hold
// to be rent exempt.
func MinBalance(size int) *big.Int {
	if size < 0 {
		size = 0
	}
	min := new(big.Int).SetUint64(rentPerByte)
	min.Mul(min, big.NewInt(int64(size)))
	return min.Add(min, new(big.Int).SetUint64(rentBase))
}

type storedAccount struct {
	Owner   [crypto.AddressLength]byte
	Balance *big.Int
	Data    []byte
}

// Manager reads and rewrites ledger accounts on top of the key-value store.
// While a transition is open all writes collect in an overlay; Commit flushes
// them and Rollback discards them, giving each instruction the all-or-nothing
// semantics the host ledger guarantees.
//
// Manager is not safe for concurrent use; the host applies instructions one
// at a time.
type Manager struct {
	db      storage.Database
	overlay map[string][]byte
}

// NewManager creates a state manager over the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a transition. Any prior uncommitted overlay is discarded.
func (m *Manager) Begin() {
	m.overlay = make(map[string][]byte)
}

// Commit flushes the open transition to the backing store.
func (m *Manager) Commit() error {
	for key, value := range m.overlay {
		if err := m.db.Put([]byte(key), value); err != nil {
			return err
		}
	}
	m.overlay = nil
	return nil
}

// Rollback discards the open transition.
func (m *Manager) Rollback() {
	m.overlay = nil
}

func (m *Manager) read(key []byte) ([]byte, bool, error) {
	if m.overlay != nil {
		if value, ok := m.overlay[string(key)]; ok {
			return value, true, nil
		}
	}
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) write(key, value []byte) error {
	if m.overlay != nil {
		m.overlay[string(key)] = value
		return nil
	}
	return m.db.Put(key, value)
}

// GetAccount loads the account stored at addr. The second return reports
// whether the address is allocated.
func (m *Manager) GetAccount(addr crypto.Address) (*types.Account, bool, error) {
	raw, ok, err := m.read(accountKey(addr))
	if err != nil || !ok {
		return nil, false, err
	}
	stored := new(storedAccount)
	if err := rlp.DecodeBytes(raw, stored); err != nil {
		return nil, false, fmt.Errorf("state: corrupt account record at %s: %w", addr.Hex(), err)
	}
	acc := &types.Account{Owner: crypto.Address(stored.Owner), Balance: big.NewInt(0), Data: stored.Data}
	if stored.Balance != nil {
		acc.Balance = new(big.Int).Set(stored.Balance)
	}
	return acc, true, nil
}

// PutAccount persists the account record at addr.
func (m *Manager) PutAccount(addr crypto.Address, acc *types.Account) error {
	if acc == nil {
		return fmt.Errorf("state: nil account for %s", addr.Hex())
	}
	acc = types.Ensure(acc)
	stored := &storedAccount{Owner: acc.Owner, Balance: acc.Balance, Data: acc.Data}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return err
	}
	return m.write(accountKey(addr), encoded)
}

// CreateAccount allocates a fresh record at addr owned by the given program.
// The funder pays the rent-exemption minimum for the requested size. This is
// the system collaborator's allocation primitive; it refuses to overwrite an
// existing record.
func (m *Manager) CreateAccount(addr, owner, funder crypto.Address, size int) (*types.Account, error) {
	if _, ok, err := m.GetAccount(addr); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAccountExists
	}
	min := MinBalance(size)
	funding, ok, err := m.GetAccount(funder)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownFunder
	}
	if funding.Balance.Cmp(min) < 0 {
		return nil, ErrInsufficientFunds
	}
	funding.Balance = new(big.Int).Sub(funding.Balance, min)
	if err := m.PutAccount(funder, funding); err != nil {
		return nil, err
	}
	created := &types.Account{Owner: owner, Balance: min}
	if err := m.PutAccount(addr, created); err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

// RentExempt reports whether the account balance still covers the exemption
// minimum for a record of the given size.
func (m *Manager) RentExempt(acc *types.Account, size int) bool {
	if acc == nil || acc.Balance == nil {
		return false
	}
	return acc.Balance.Cmp(MinBalance(size)) >= 0
}

// Credit adds native units to addr, allocating a bare system account when the
// address is unknown. Used for genesis funding and fee payouts.
func (m *Manager) Credit(addr crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: credit amount must be non-negative")
	}
	acc, _, err := m.GetAccount(addr)
	if err != nil {
		return err
	}
	acc = types.Ensure(acc)
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return m.PutAccount(addr, acc)
}

// Debit removes native units from addr.
func (m *Manager) Debit(addr crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: debit amount must be non-negative")
	}
	acc, ok, err := m.GetAccount(addr)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientFunds
	}
	if acc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	acc.Balance = new(big.Int).Sub(acc.Balance, amount)
	return m.PutAccount(addr, acc)
}
