// Package merchant implements the merchant registry: the single operation
// that brings a seller record into existence. Registration is the only write
// path for merchant records; sponsor, fee and metadata are fixed afterwards.
package merchant

import (
	"errors"

	"paygate/core/events"
	"paygate/core/types"
	"paygate/crypto"
	"paygate/native/pda"
	"paygate/native/records"
)

var (
	// ErrMissingSignature is returned when the registering key did not sign
	// the transaction.
	ErrMissingSignature = errors.New("merchant: missing required signature")
	// ErrAlreadyRegistered is returned when the target record is already
	// initialized.
	ErrAlreadyRegistered = errors.New("merchant: record already initialized")
	// ErrNotRentExempt is returned when the record account cannot cover the
	// rent-exemption minimum after the write.
	ErrNotRentExempt = errors.New("merchant: record below rent exemption")
)

// DefaultSeed is used to derive the merchant record address when the caller
// supplies no seed of their own.
const DefaultSeed = "merchant"

type registryState interface {
	GetAccount(addr crypto.Address) (*types.Account, bool, error)
	PutAccount(addr crypto.Address, acc *types.Account) error
	CreateAccount(addr, owner, funder crypto.Address, size int) (*types.Account, error)
	RentExempt(acc *types.Account, size int) bool
}

// Config carries the process-wide constants the registry enforces.
type Config struct {
	// Program is the payment program identity owning all records.
	Program crypto.Address
	// Operator is the platform operator key, the default sponsor.
	Operator crypto.Address
	// MinFee floors every merchant's configured fee.
	MinFee uint64
}

// Registry creates and reads merchant records.
type Registry struct {
	state   registryState
	cfg     Config
	emitter events.Emitter
}

// NewRegistry constructs a registry over the given state backend.
func NewRegistry(state registryState, cfg Config) *Registry {
	return &Registry{state: state, cfg: cfg, emitter: events.NoopEmitter{}}
}

// SetEmitter wires an event emitter; nil resets to the no-op emitter.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	r.emitter = emitter
}

// Params are the caller-supplied registration fields. Zero values select the
// documented defaults.
type Params struct {
	// Seed pins the record address to a derivation from the signer; empty
	// selects DefaultSeed.
	Seed string
	// Fee is the requested minimum platform fee, floored by Config.MinFee.
	Fee uint64
	// Data is opaque merchant metadata; empty becomes "{}".
	Data string
}

// Register initializes the merchant record at merchantAddr. The signer
// becomes the record owner; a zero sponsor defaults to the platform operator.
// When the address is unallocated the signer funds the allocation.
func (r *Registry) Register(signer types.AccountMeta, merchantAddr, sponsor crypto.Address, params Params) (*records.MerchantAccount, error) {
	if !signer.Signer {
		return nil, ErrMissingSignature
	}
	seed := params.Seed
	if seed == "" {
		seed = DefaultSeed
	}
	if err := pda.Seeded(r.cfg.Program, signer.Address, seed).Expect(merchantAddr); err != nil {
		return nil, err
	}

	record := &records.MerchantAccount{
		Status:  records.MerchantInitialized,
		Owner:   signer.Address,
		Sponsor: sponsor,
		Fee:     params.Fee,
		Data:    params.Data,
	}
	if record.Sponsor.IsZero() {
		record.Sponsor = r.cfg.Operator
	}
	if record.Fee < r.cfg.MinFee {
		record.Fee = r.cfg.MinFee
	}
	if record.Data == "" {
		record.Data = records.DefaultData
	}
	encoded, err := record.Encode()
	if err != nil {
		return nil, err
	}

	acc, ok, err := r.state.GetAccount(merchantAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		acc, err = r.state.CreateAccount(merchantAddr, r.cfg.Program, signer.Address, len(encoded))
		if err != nil {
			return nil, err
		}
	} else {
		if acc.Owner != r.cfg.Program {
			return nil, records.ErrWrongOwner
		}
		existing, err := records.DecodeMerchant(acc.Data)
		if err != nil {
			return nil, err
		}
		if existing.Initialized() {
			return nil, ErrAlreadyRegistered
		}
	}

	acc.Data = encoded
	if !r.state.RentExempt(acc, len(encoded)) {
		return nil, ErrNotRentExempt
	}
	if err := r.state.PutAccount(merchantAddr, acc); err != nil {
		return nil, err
	}
	r.emitter.Emit(events.MerchantRegistered{
		Merchant: merchantAddr,
		Owner:    record.Owner,
		Sponsor:  record.Sponsor,
		Fee:      record.Fee,
	})
	return record.Clone(), nil
}

// Merchant loads the initialized merchant record at addr.
func (r *Registry) Merchant(addr crypto.Address) (*records.MerchantAccount, error) {
	return records.LoadMerchant(r.state, r.cfg.Program, addr)
}
