// Package order implements the order ledger: checkout creates an order record
// and escrows the payment under the custodial signer, withdraw releases the
// escrow to the registered merchant owner. Every referenced account is
// re-validated here before funds move.
package order

import (
	"errors"
	"math/big"
	"strconv"
	"time"

	"paygate/core/events"
	"paygate/core/types"
	"paygate/crypto"
	"paygate/native/catalog"
	"paygate/native/fees"
	"paygate/native/pda"
	"paygate/native/records"
	"paygate/native/token"
)

var (
	// ErrMissingSignature is returned when the submitting key did not sign.
	ErrMissingSignature = errors.New("order: missing required signature")
	// ErrWrongOperator is returned when the supplied operator account does
	// not match the configured platform operator.
	ErrWrongOperator = errors.New("order: wrong platform operator account")
	// ErrWrongSponsor is returned when the supplied sponsor account does not
	// match the merchant's registered sponsor.
	ErrWrongSponsor = errors.New("order: wrong sponsor account")
	// ErrMintMismatch is returned when the payer token account holds a
	// different mint than the checkout declares.
	ErrMintMismatch = errors.New("order: mint mismatch")
	// ErrOrderExists is returned when the order record is already
	// initialized.
	ErrOrderExists = errors.New("order: order already initialized")
	// ErrAlreadySettled is returned when an order has already left the Paid
	// state.
	ErrAlreadySettled = errors.New("order: order already withdrawn or cancelled")
	// ErrWrongMerchant is returned when the order belongs to a different
	// merchant than supplied.
	ErrWrongMerchant = errors.New("order: order belongs to a different merchant")
	// ErrWrongEscrow is returned when the escrow account does not match the
	// order's recorded token account.
	ErrWrongEscrow = errors.New("order: wrong escrow token account")
	// ErrWrongDestination is returned when the destination token account is
	// not owned by the merchant owner.
	ErrWrongDestination = errors.New("order: destination not owned by merchant owner")
	// ErrSubscriptionRequired is returned when a trial-bearing merchant
	// catalog demands a subscription record for withdrawal.
	ErrSubscriptionRequired = errors.New("order: subscription record required")
	// ErrWrongSubscription is returned when the order does not reference the
	// supplied subscription account.
	ErrWrongSubscription = errors.New("order: order references a different subscription")
	// ErrStillInTrial is returned when withdrawal is attempted before the
	// subscription trial window has elapsed.
	ErrStillInTrial = errors.New("order: trial window has not elapsed")
	// ErrNotRentExempt is returned when the order account cannot cover the
	// rent-exemption minimum after the write.
	ErrNotRentExempt = errors.New("order: record below rent exemption")
)

type engineState interface {
	GetAccount(addr crypto.Address) (*types.Account, bool, error)
	PutAccount(addr crypto.Address, acc *types.Account) error
	CreateAccount(addr, owner, funder crypto.Address, size int) (*types.Account, error)
	RentExempt(acc *types.Account, size int) bool
	Credit(addr crypto.Address, amount *big.Int) error
	Debit(addr crypto.Address, amount *big.Int) error
}

// Config carries the process-wide constants the order ledger enforces.
type Config struct {
	// Program is the payment program identity owning all records.
	Program crypto.Address
	// Operator is the platform operator key receiving protocol fees.
	Operator crypto.Address
	// TokenProgram is the external token primitive's identity, a seed of
	// every escrow derivation.
	TokenProgram crypto.Address
	// SponsorFeeRate is the per-mille share of the protocol fee routed to a
	// third-party sponsor; zero selects the default rate.
	SponsorFeeRate uint64
}

// Engine applies checkout and withdraw transitions to order records.
type Engine struct {
	state   engineState
	token   *token.Program
	cfg     Config
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs an order engine over the given state backend and token
// primitive.
func NewEngine(state engineState, tok *token.Program, cfg Config) *Engine {
	if cfg.SponsorFeeRate == 0 {
		cfg.SponsorFeeRate = fees.DefaultRatePerMille
	}
	return &Engine{
		state:   state,
		token:   tok,
		cfg:     cfg,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetEmitter wires an event emitter; nil resets to the no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetNowFunc overrides the engine clock; nil restores the wall clock.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	e.nowFn = now
}

// CheckoutAccounts is the fixed account list both checkout variants consume.
type CheckoutAccounts struct {
	// Signer is the paying party and funds the new accounts.
	Signer types.AccountMeta
	// Order is the new order record address.
	Order crypto.Address
	// Merchant is the initialized merchant record address.
	Merchant crypto.Address
	// Escrow is the per-order escrow token address; must equal its
	// derivation from (order, token program, mint).
	Escrow crypto.Address
	// PayerToken is the signer's funded token account.
	PayerToken crypto.Address
	// Operator must match the configured platform operator.
	Operator crypto.Address
	// Sponsor must match the merchant's registered sponsor.
	Sponsor crypto.Address
	// Mint is the asset being paid.
	Mint crypto.Address
	// Custodian must match the custodial signer derivation.
	Custodian crypto.Address
}

// CheckoutParams are the caller-supplied fields of a single-order checkout.
type CheckoutParams struct {
	Amount  uint64
	OrderID string
	Secret  string
	Data    string
}

// ChainParams are the caller-supplied fields of a multi-item chain checkout.
type ChainParams struct {
	Amount uint64
	Items  []records.LineItem
	Data   string
}

// ExpressCheckout settles a single caller-identified order: funds move from
// the payer token account into a fresh escrow and the record is written Paid.
func (e *Engine) ExpressCheckout(accounts CheckoutAccounts, params CheckoutParams) (*records.OrderAccount, error) {
	return e.checkout(accounts, params.Amount, params.OrderID, params.Secret, params.Data, nil)
}

// ChainCheckout settles a multi-item order. The order id is synthesized from
// the current timestamp and the item manifest rides in the record.
func (e *Engine) ChainCheckout(accounts CheckoutAccounts, params ChainParams) (*records.OrderAccount, error) {
	orderID := strconv.FormatInt(e.nowFn(), 10)
	return e.checkout(accounts, params.Amount, orderID, "", params.Data, params.Items)
}

func (e *Engine) checkout(accounts CheckoutAccounts, amount uint64, orderID, secret, data string, items []records.LineItem) (*records.OrderAccount, error) {
	if !accounts.Signer.Signer {
		return nil, ErrMissingSignature
	}
	merchant, err := records.LoadMerchant(e.state, e.cfg.Program, accounts.Merchant)
	if err != nil {
		return nil, err
	}
	payerToken, err := e.token.Account(accounts.PayerToken)
	if err != nil {
		return nil, err
	}
	if payerToken.Mint != accounts.Mint {
		return nil, ErrMintMismatch
	}
	if accounts.Operator != e.cfg.Operator {
		return nil, ErrWrongOperator
	}
	if accounts.Sponsor != merchant.Sponsor {
		return nil, ErrWrongSponsor
	}
	custodian := pda.Custodian(e.cfg.Program)
	if err := custodian.Expect(accounts.Custodian); err != nil {
		return nil, err
	}
	escrow := pda.EscrowToken(e.cfg.Program, accounts.Order, e.cfg.TokenProgram, accounts.Mint)
	if err := escrow.Expect(accounts.Escrow); err != nil {
		return nil, err
	}
	if acc, ok, err := e.state.GetAccount(accounts.Order); err != nil {
		return nil, err
	} else if ok {
		if acc.Owner != e.cfg.Program {
			return nil, records.ErrWrongOwner
		}
		existing, err := records.DecodeOrder(acc.Data)
		if err != nil {
			return nil, err
		}
		if existing.Initialized() {
			return nil, ErrOrderExists
		}
	}

	if err := e.token.InitializeAccount(accounts.Escrow, accounts.Mint, custodian.Address, accounts.Signer.Address); err != nil {
		return nil, err
	}
	if err := e.token.Transfer(accounts.PayerToken, accounts.Escrow, accounts.Signer.Address, amount); err != nil {
		return nil, err
	}
	if err := e.payFee(accounts.Signer.Address, merchant); err != nil {
		return nil, err
	}

	now := e.nowFn()
	record := &records.OrderAccount{
		Status:         records.OrderPaid,
		Created:        now,
		Modified:       now,
		Merchant:       accounts.Merchant,
		Mint:           accounts.Mint,
		Token:          accounts.Escrow,
		Payer:          accounts.Signer.Address,
		ExpectedAmount: amount,
		PaidAmount:     amount,
		OrderID:        orderID,
		Secret:         secret,
		Data:           data,
		Items:          items,
	}
	if record.Data == "" {
		record.Data = records.DefaultData
	}
	if err := e.writeOrder(accounts.Order, accounts.Signer.Address, record); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.OrderPaid{
		Order:    accounts.Order,
		Merchant: accounts.Merchant,
		Payer:    accounts.Signer.Address,
		Mint:     accounts.Mint,
		Amount:   amount,
		OrderID:  orderID,
	})
	return record.Clone(), nil
}

// payFee charges the merchant's protocol fee in the ledger's native unit.
// A sponsor distinct from the operator takes the fee share of the split; the
// operator keeps the remainder.
func (e *Engine) payFee(payer crypto.Address, merchant *records.MerchantAccount) error {
	fee := new(big.Int).SetUint64(merchant.Fee)
	if err := e.state.Debit(payer, fee); err != nil {
		return err
	}
	if merchant.Sponsor == e.cfg.Operator {
		return e.state.Credit(e.cfg.Operator, fee)
	}
	take, share := fees.Split(merchant.Fee, e.cfg.SponsorFeeRate)
	if err := e.state.Credit(e.cfg.Operator, new(big.Int).SetUint64(take)); err != nil {
		return err
	}
	return e.state.Credit(merchant.Sponsor, new(big.Int).SetUint64(share))
}

// WithdrawAccounts is the fixed account list a withdrawal consumes.
type WithdrawAccounts struct {
	// Signer submits the transaction; any party may, the destination check
	// keeps funds with the merchant owner.
	Signer types.AccountMeta
	// Order is the paid order record address.
	Order crypto.Address
	// Merchant is the owning merchant record address.
	Merchant crypto.Address
	// Escrow must match the order's recorded token account.
	Escrow crypto.Address
	// MerchantToken receives the escrowed funds; its owner must equal the
	// merchant record's owner.
	MerchantToken crypto.Address
	// Custodian must match the custodial signer derivation.
	Custodian crypto.Address
	// Subscription is required when the merchant catalog declares
	// trial-bearing packages.
	Subscription *crypto.Address
}

// Withdraw releases a paid order's escrow to the merchant owner's token
// account and marks the order Withdrawn.
func (e *Engine) Withdraw(accounts WithdrawAccounts) (*records.OrderAccount, error) {
	if !accounts.Signer.Signer {
		return nil, ErrMissingSignature
	}
	merchant, err := records.LoadMerchant(e.state, e.cfg.Program, accounts.Merchant)
	if err != nil {
		return nil, err
	}
	order, err := records.LoadOrder(e.state, e.cfg.Program, accounts.Order)
	if err != nil {
		return nil, err
	}
	custodian := pda.Custodian(e.cfg.Program)
	if err := custodian.Expect(accounts.Custodian); err != nil {
		return nil, err
	}
	destination, err := e.token.Account(accounts.MerchantToken)
	if err != nil {
		return nil, err
	}
	if destination.Owner != merchant.Owner {
		return nil, ErrWrongDestination
	}
	if order.Merchant != accounts.Merchant {
		return nil, ErrWrongMerchant
	}
	if order.Token != accounts.Escrow {
		return nil, ErrWrongEscrow
	}
	if order.Status != records.OrderPaid {
		return nil, ErrAlreadySettled
	}
	now := e.nowFn()
	if catalog.HasTrialPackages(merchant.Data) {
		if err := e.checkTrialElapsed(accounts, merchant, order, now); err != nil {
			return nil, err
		}
	}

	if err := e.token.TransferSigned(accounts.Escrow, accounts.MerchantToken, custodian, e.cfg.Program, order.PaidAmount); err != nil {
		return nil, err
	}
	order.Status = records.OrderWithdrawn
	order.Modified = now
	if err := e.rewriteOrder(accounts.Order, order); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.OrderWithdrawn{
		Order:    accounts.Order,
		Merchant: accounts.Merchant,
		Amount:   order.PaidAmount,
	})
	return order.Clone(), nil
}

// checkTrialElapsed blocks withdrawal while the linked subscription is still
// inside its package's trial window.
func (e *Engine) checkTrialElapsed(accounts WithdrawAccounts, merchant *records.MerchantAccount, order *records.OrderAccount, now int64) error {
	if accounts.Subscription == nil {
		return ErrSubscriptionRequired
	}
	ref, ok := records.SubscriptionRef(order.Data)
	if !ok || ref != accounts.Subscription.String() {
		return ErrWrongSubscription
	}
	sub, err := records.LoadSubscription(e.state, e.cfg.Program, *accounts.Subscription)
	if err != nil {
		return err
	}
	name, err := catalog.PackageName(sub.Name)
	if err != nil {
		return err
	}
	pkg, err := catalog.Resolve(merchant.Data, name)
	if err != nil {
		return err
	}
	if now < sub.Joined+pkg.Trial {
		return ErrStillInTrial
	}
	return nil
}

// Order loads the initialized order record at addr.
func (e *Engine) Order(addr crypto.Address) (*records.OrderAccount, error) {
	return records.LoadOrder(e.state, e.cfg.Program, addr)
}

// writeOrder persists a fresh order record, allocating the account when the
// address is unused.
func (e *Engine) writeOrder(addr, funder crypto.Address, record *records.OrderAccount) error {
	encoded, err := record.Encode()
	if err != nil {
		return err
	}
	acc, ok, err := e.state.GetAccount(addr)
	if err != nil {
		return err
	}
	if !ok {
		acc, err = e.state.CreateAccount(addr, e.cfg.Program, funder, len(encoded))
		if err != nil {
			return err
		}
	}
	acc.Data = encoded
	if !e.state.RentExempt(acc, len(encoded)) {
		return ErrNotRentExempt
	}
	return e.state.PutAccount(addr, acc)
}

// rewriteOrder persists an updated record into an existing order account.
func (e *Engine) rewriteOrder(addr crypto.Address, record *records.OrderAccount) error {
	encoded, err := record.Encode()
	if err != nil {
		return err
	}
	acc, ok, err := e.state.GetAccount(addr)
	if err != nil {
		return err
	}
	if !ok {
		return records.ErrNotFound
	}
	acc.Data = encoded
	return e.state.PutAccount(addr, acc)
}
