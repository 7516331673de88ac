package pda

import (
	"errors"
	"testing"

	"paygate/crypto"
)

func addr(fill byte) crypto.Address {
	var a crypto.Address
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestDeriveDeterministic(t *testing.T) {
	program := addr(0x01)
	first := Custodian(program)
	second := Custodian(program)
	if first.Address != second.Address {
		t.Fatalf("custodian derivation not deterministic: %s vs %s", first.Address.Hex(), second.Address.Hex())
	}
	if first.Address.IsZero() {
		t.Fatal("derived a zero address")
	}
}

func TestDeriveScopedToProgram(t *testing.T) {
	if Custodian(addr(0x01)).Address == Custodian(addr(0x02)).Address {
		t.Fatal("custodian derivation ignores program identity")
	}
}

func TestEscrowTokenUniquePerOrder(t *testing.T) {
	program := addr(0x01)
	tokenProgram := addr(0x02)
	mint := addr(0x03)
	first := EscrowToken(program, addr(0x10), tokenProgram, mint)
	second := EscrowToken(program, addr(0x11), tokenProgram, mint)
	if first.Address == second.Address {
		t.Fatal("escrow derivation collides across orders")
	}
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	program := addr(0x01)
	d := EscrowToken(program, addr(0x10), addr(0x02), addr(0x03))
	if err := Verify(program, d); err != nil {
		t.Fatalf("valid proof rejected: %v", err)
	}

	tampered := d
	tampered.Address = addr(0xFF)
	if err := Verify(program, tampered); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}

	forged := d
	forged.Seeds = [][]byte{[]byte("unrelated")}
	if err := Verify(program, forged); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch for forged seeds, got %v", err)
	}
}

func TestExpect(t *testing.T) {
	program := addr(0x01)
	d := Custodian(program)
	if err := d.Expect(d.Address); err != nil {
		t.Fatalf("expect rejected matching address: %v", err)
	}
	if err := d.Expect(addr(0xAB)); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}
