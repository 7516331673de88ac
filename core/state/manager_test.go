package state

import (
	"errors"
	"math/big"
	"testing"

	"paygate/core/types"
	"paygate/crypto"
	"paygate/storage"
)

func testAddr(fill byte) crypto.Address {
	var addr crypto.Address
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestAccountRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := testAddr(0x01)
	owner := testAddr(0x02)

	acc := &types.Account{Owner: owner, Balance: big.NewInt(42), Data: []byte("payload")}
	if err := m.PutAccount(addr, acc); err != nil {
		t.Fatalf("put account: %v", err)
	}

	got, ok, err := m.GetAccount(addr)
	if err != nil || !ok {
		t.Fatalf("get account: ok=%v err=%v", ok, err)
	}
	if got.Owner != owner {
		t.Fatalf("unexpected owner: %x", got.Owner)
	}
	if got.Balance.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("unexpected balance: %s", got.Balance)
	}
	if string(got.Data) != "payload" {
		t.Fatalf("unexpected data: %q", got.Data)
	}
}

func TestGetAccountMissing(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	if _, ok, err := m.GetAccount(testAddr(0xEE)); err != nil || ok {
		t.Fatalf("expected missing account, got ok=%v err=%v", ok, err)
	}
}

func TestCreateAccountDebitsFunder(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	funder := testAddr(0x0A)
	target := testAddr(0x0B)
	program := testAddr(0x0C)

	if err := m.Credit(funder, new(big.Int).Mul(MinBalance(100), big.NewInt(2))); err != nil {
		t.Fatalf("credit funder: %v", err)
	}

	created, err := m.CreateAccount(target, program, funder, 100)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if created.Owner != program {
		t.Fatalf("unexpected owner: %x", created.Owner)
	}
	if created.Balance.Cmp(MinBalance(100)) != 0 {
		t.Fatalf("unexpected created balance: %s", created.Balance)
	}

	if _, err := m.CreateAccount(target, program, funder, 100); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestCreateAccountRequiresFunds(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	funder := testAddr(0x0A)
	if err := m.Credit(funder, big.NewInt(1)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := m.CreateAccount(testAddr(0x0B), testAddr(0x0C), funder, 10); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := m.CreateAccount(testAddr(0x0B), testAddr(0x0C), testAddr(0xFF), 10); !errors.Is(err, ErrUnknownFunder) {
		t.Fatalf("expected ErrUnknownFunder, got %v", err)
	}
}

func TestTransitionRollback(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := testAddr(0x01)
	if err := m.Credit(addr, big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	m.Begin()
	if err := m.Debit(addr, big.NewInt(60)); err != nil {
		t.Fatalf("debit: %v", err)
	}
	m.Rollback()

	acc, _, err := m.GetAccount(addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acc.Balance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("rollback lost balance: %s", acc.Balance)
	}
}

func TestTransitionCommit(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := testAddr(0x01)
	if err := m.Credit(addr, big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	m.Begin()
	if err := m.Debit(addr, big.NewInt(60)); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if err := m.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	acc, _, err := m.GetAccount(addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acc.Balance.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("unexpected balance after commit: %s", acc.Balance)
	}
}

func TestDebitInsufficient(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	if err := m.Debit(testAddr(0x01), big.NewInt(1)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}
