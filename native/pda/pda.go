// Package pda derives program-controlled addresses. A derived address has no
// private key; the seeds that produced it travel with the address as proof,
// and every consumer recomputes the derivation before trusting it.
package pda

import (
	"errors"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"paygate/crypto"
)

// CustodianSeed is the fixed seed behind the single custodial signer that
// co-signs all outbound escrow transfers.
const CustodianSeed = "paygate_custodian"

// ErrMismatch is returned when a caller-supplied address does not match its
// claimed derivation.
var ErrMismatch = errors.New("pda: derived address mismatch")

// Derivation binds a derived address to the seeds that produced it. Holders
// present it in place of a signature when moving program-custodied funds.
type Derivation struct {
	Address crypto.Address
	Seeds   [][]byte
}

// Derive computes the deterministic address for the given program identity
// and seed sequence.
func Derive(program crypto.Address, seeds ...[]byte) Derivation {
	input := make([]byte, 0, crypto.AddressLength*(len(seeds)+1))
	input = append(input, program[:]...)
	for _, seed := range seeds {
		input = append(input, seed...)
	}
	sum := ethcrypto.Keccak256(input)
	var addr crypto.Address
	copy(addr[:], sum)
	copied := make([][]byte, len(seeds))
	for i, seed := range seeds {
		copied[i] = append([]byte(nil), seed...)
	}
	return Derivation{Address: addr, Seeds: copied}
}

// Custodian derives the program's custodial signer address.
func Custodian(program crypto.Address) Derivation {
	return Derive(program, []byte(CustodianSeed))
}

// EscrowToken derives the per-order escrow token address from the order
// address, the token program identity and the mint. One escrow location per
// order, predictable by any party, forgeable by none.
func EscrowToken(program, order, tokenProgram, mint crypto.Address) Derivation {
	return Derive(program, order[:], tokenProgram[:], mint[:])
}

// Seeded derives the record address for a caller-chosen seed string scoped to
// a base address, as used for merchant, order and subscription records.
func Seeded(program, base crypto.Address, seed string) Derivation {
	return Derive(program, base[:], []byte(seed))
}

// Verify recomputes the derivation for the program and reports whether it
// reproduces the claimed address.
func Verify(program crypto.Address, d Derivation) error {
	recomputed := Derive(program, d.Seeds...)
	if recomputed.Address != d.Address {
		return ErrMismatch
	}
	return nil
}

// Expect asserts that the supplied address equals the derivation. Engines
// call this before any fund movement touching a derived account.
func (d Derivation) Expect(supplied crypto.Address) error {
	if d.Address != supplied {
		return ErrMismatch
	}
	return nil
}
