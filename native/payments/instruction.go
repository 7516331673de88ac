// Package payments routes wire-level instructions to the payment engines.
// An instruction is a tagged record: one type byte followed by an RLP-encoded
// payload, with a fixed positional account list per type.
package payments

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"paygate/native/records"
)

var (
	// ErrEmptyInstruction is returned for zero-length instruction data.
	ErrEmptyInstruction = errors.New("payments: empty instruction")
	// ErrUnknownInstruction is returned for an unrecognized type byte.
	ErrUnknownInstruction = errors.New("payments: unknown instruction type")
	// ErrBadPayload is returned when the payload does not decode for the
	// declared type.
	ErrBadPayload = errors.New("payments: malformed instruction payload")
)

// InstructionType is the leading tag byte of an encoded instruction.
type InstructionType byte

const (
	TypeRegisterMerchant InstructionType = 0x01
	TypeExpressCheckout  InstructionType = 0x02
	TypeChainCheckout    InstructionType = 0x03
	TypeWithdraw         InstructionType = 0x04
	TypeSubscribe        InstructionType = 0x05
	TypeRenew            InstructionType = 0x06
	TypeCancel           InstructionType = 0x07
)

func (t InstructionType) String() string {
	switch t {
	case TypeRegisterMerchant:
		return "register_merchant"
	case TypeExpressCheckout:
		return "express_checkout"
	case TypeChainCheckout:
		return "chain_checkout"
	case TypeWithdraw:
		return "withdraw"
	case TypeSubscribe:
		return "subscribe"
	case TypeRenew:
		return "renew"
	case TypeCancel:
		return "cancel"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// RegisterMerchantData is the payload of a RegisterMerchant instruction.
// Accounts: [signer, merchant record, sponsor?].
type RegisterMerchantData struct {
	Seed string
	Fee  uint64
	Data string
}

// ExpressCheckoutData is the payload of an ExpressCheckout instruction.
// Accounts: [signer, order, merchant, escrow token, payer token, operator,
// sponsor, mint, custodian].
type ExpressCheckoutData struct {
	Amount  uint64
	OrderID string
	Secret  string
	Data    string
}

// ChainCheckoutData is the payload of a ChainCheckout instruction. The account
// list matches ExpressCheckout; the order id is synthesized from the clock.
type ChainCheckoutData struct {
	Amount uint64
	Items  []records.LineItem
	Data   string
}

// WithdrawData is the (empty) payload of a Withdraw instruction.
// Accounts: [signer, order, merchant, escrow token, merchant token,
// custodian, subscription?].
type WithdrawData struct{}

// SubscribeData is the payload of a Subscribe instruction.
// Accounts: [signer, subscription, merchant, order].
type SubscribeData struct {
	Name string
	Data string
}

// RenewData is the payload of a Renew instruction. The account list matches
// Subscribe.
type RenewData struct {
	Quantity uint64
}

// CancelData is the (empty) payload of a Cancel instruction.
// Accounts: [signer, subscription, merchant, order, escrow token,
// refund token, custodian].
type CancelData struct{}

// Instruction is a decoded instruction; exactly one payload field matching
// Type is populated.
type Instruction struct {
	Type             InstructionType
	RegisterMerchant *RegisterMerchantData
	ExpressCheckout  *ExpressCheckoutData
	ChainCheckout    *ChainCheckoutData
	Withdraw         *WithdrawData
	Subscribe        *SubscribeData
	Renew            *RenewData
	Cancel           *CancelData
}

// Encode serializes an instruction payload under its type byte.
func Encode(t InstructionType, payload interface{}) ([]byte, error) {
	body, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(t))
	return append(out, body...), nil
}

// Decode parses raw instruction bytes into a typed instruction.
func Decode(raw []byte) (*Instruction, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyInstruction
	}
	inst := &Instruction{Type: InstructionType(raw[0])}
	body := raw[1:]
	var payload interface{}
	switch inst.Type {
	case TypeRegisterMerchant:
		inst.RegisterMerchant = new(RegisterMerchantData)
		payload = inst.RegisterMerchant
	case TypeExpressCheckout:
		inst.ExpressCheckout = new(ExpressCheckoutData)
		payload = inst.ExpressCheckout
	case TypeChainCheckout:
		inst.ChainCheckout = new(ChainCheckoutData)
		payload = inst.ChainCheckout
	case TypeWithdraw:
		inst.Withdraw = new(WithdrawData)
		payload = inst.Withdraw
	case TypeSubscribe:
		inst.Subscribe = new(SubscribeData)
		payload = inst.Subscribe
	case TypeRenew:
		inst.Renew = new(RenewData)
		payload = inst.Renew
	case TypeCancel:
		inst.Cancel = new(CancelData)
		payload = inst.Cancel
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownInstruction, raw[0])
	}
	if err := rlp.DecodeBytes(body, payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadPayload, inst.Type, err)
	}
	return inst, nil
}
