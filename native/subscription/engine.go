// Package subscription implements the recurring-billing engine. A paid order
// buys into a package from the merchant's catalog: subscribe consumes it into
// a new subscription, renew pushes the paid-through timestamp forward, and
// cancel refunds the order while the trial window is still open.
package subscription

import (
	"errors"
	"math/big"
	"time"

	"paygate/core/events"
	"paygate/core/types"
	"paygate/crypto"
	"paygate/native/catalog"
	"paygate/native/pda"
	"paygate/native/records"
	"paygate/native/token"
)

var (
	// ErrMissingSignature is returned when the submitting key did not sign.
	ErrMissingSignature = errors.New("subscription: missing required signature")
	// ErrNotPayer is returned when the signer is not the order's payer.
	ErrNotPayer = errors.New("subscription: signer is not the order payer")
	// ErrOrderNotPaid is returned when the referenced order is not in the
	// Paid state.
	ErrOrderNotPaid = errors.New("subscription: order not paid")
	// ErrWrongMerchant is returned when order or subscription belong to a
	// different merchant than supplied.
	ErrWrongMerchant = errors.New("subscription: record belongs to a different merchant")
	// ErrWrongOrderLink is returned when the order metadata does not name
	// the supplied subscription account.
	ErrWrongOrderLink = errors.New("subscription: order references a different subscription")
	// ErrInsufficientPayment is returned when the order's paid amount does
	// not cover the package price.
	ErrInsufficientPayment = errors.New("subscription: paid amount below package price")
	// ErrAlreadySubscribed is returned when the subscription record is
	// already initialized.
	ErrAlreadySubscribed = errors.New("subscription: record already initialized")
	// ErrInvalidQuantity is returned for a zero renewal quantity.
	ErrInvalidQuantity = errors.New("subscription: renewal quantity must be positive")
	// ErrPeriodOverflow is returned when a renewal would push the paid-through
	// timestamp past the representable range.
	ErrPeriodOverflow = errors.New("subscription: renewal period out of range")
	// ErrTrialElapsed is returned when cancellation is attempted after the
	// trial window closed.
	ErrTrialElapsed = errors.New("subscription: trial window has elapsed")
	// ErrWrongEscrow is returned when the escrow account does not match the
	// order's recorded token account.
	ErrWrongEscrow = errors.New("subscription: wrong escrow token account")
	// ErrWrongRefundAccount is returned when the refund destination is not
	// owned by the order payer.
	ErrWrongRefundAccount = errors.New("subscription: refund destination not owned by payer")
	// ErrNotRentExempt is returned when the subscription account cannot
	// cover the rent-exemption minimum after the write.
	ErrNotRentExempt = errors.New("subscription: record below rent exemption")
)

type engineState interface {
	GetAccount(addr crypto.Address) (*types.Account, bool, error)
	PutAccount(addr crypto.Address, acc *types.Account) error
	CreateAccount(addr, owner, funder crypto.Address, size int) (*types.Account, error)
	RentExempt(acc *types.Account, size int) bool
}

// Config carries the process-wide constants the subscription engine enforces.
type Config struct {
	// Program is the payment program identity owning all records.
	Program crypto.Address
}

// Engine applies subscribe, renew and cancel transitions.
type Engine struct {
	state   engineState
	token   *token.Program
	cfg     Config
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a subscription engine over the given state backend and
// token primitive.
func NewEngine(state engineState, tok *token.Program, cfg Config) *Engine {
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

// Accounts is the fixed account list subscribe and renew consume.
type Accounts struct {
	// Signer must be the order's payer.
	Signer types.AccountMeta
	// Subscription is the subscription record address.
	Subscription crypto.Address
	// Merchant is the owning merchant record address.
	Merchant crypto.Address
	// Order is the paid order funding the operation.
	Order crypto.Address
}

// CancelAccounts extends the shared list with the escrow reversal accounts.
type CancelAccounts struct {
	Accounts
	// Escrow must match the order's recorded token account.
	Escrow crypto.Address
	// RefundToken receives the refund; its owner must equal the order payer.
	RefundToken crypto.Address
	// Custodian must match the custodial signer derivation.
	Custodian crypto.Address
}

// SubscribeParams are the caller-supplied fields of a subscribe instruction.
type SubscribeParams struct {
	// Name follows the "<merchant-scoped-id>:<package-name>" convention.
	Name string
	// Data is opaque subscription metadata; empty becomes "{}".
	Data string
}

// shared runs the validation every subscription operation starts with: the
// signer is the paying party, the order is paid, belongs to the stated
// merchant, and its metadata names the supplied subscription account.
func (e *Engine) shared(accounts Accounts) (*records.MerchantAccount, *records.OrderAccount, error) {
	if !accounts.Signer.Signer {
		return nil, nil, ErrMissingSignature
	}
	merchant, err := records.LoadMerchant(e.state, e.cfg.Program, accounts.Merchant)
	if err != nil {
		return nil, nil, err
	}
	order, err := records.LoadOrder(e.state, e.cfg.Program, accounts.Order)
	if err != nil {
		return nil, nil, err
	}
	if order.Payer != accounts.Signer.Address {
		return nil, nil, ErrNotPayer
	}
	if order.Status != records.OrderPaid {
		return nil, nil, ErrOrderNotPaid
	}
	if order.Merchant != accounts.Merchant {
		return nil, nil, ErrWrongMerchant
	}
	ref, ok := records.SubscriptionRef(order.Data)
	if !ok || ref != accounts.Subscription.String() {
		return nil, nil, ErrWrongOrderLink
	}
	return merchant, order, nil
}

// Subscribe consumes a paid order into a new subscription record. The paid
// amount must cover one full period of the named package; the trial window,
// when declared, is granted on top of the first period.
func (e *Engine) Subscribe(accounts Accounts, params SubscribeParams) (*records.SubscriptionAccount, error) {
	merchant, order, err := e.shared(accounts)
	if err != nil {
		return nil, err
	}
	name, err := catalog.PackageName(params.Name)
	if err != nil {
		return nil, err
	}
	pkg, err := catalog.Resolve(merchant.Data, name)
	if err != nil {
		return nil, err
	}
	if order.PaidAmount < pkg.Price {
		return nil, ErrInsufficientPayment
	}
	if acc, ok, err := e.state.GetAccount(accounts.Subscription); err != nil {
		return nil, err
	} else if ok {
		if acc.Owner != e.cfg.Program {
			return nil, records.ErrWrongOwner
		}
		existing, err := records.DecodeSubscription(acc.Data)
		if err != nil {
			return nil, err
		}
		if existing.Initialized() {
			return nil, ErrAlreadySubscribed
		}
	}

	now := e.nowFn()
	record := &records.SubscriptionAccount{
		Status:      records.SubscriptionInitialized,
		Owner:       accounts.Signer.Address,
		Merchant:    accounts.Merchant,
		Name:        params.Name,
		Joined:      now,
		PeriodStart: now,
		PeriodEnd:   now + pkg.Trial + pkg.Duration,
		Data:        params.Data,
	}
	if record.Data == "" {
		record.Data = records.DefaultData
	}
	if err := e.writeSubscription(accounts.Subscription, accounts.Signer.Address, record, true); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.SubscriptionCreated{
		Subscription: accounts.Subscription,
		Merchant:     accounts.Merchant,
		Owner:        record.Owner,
		Name:         record.Name,
		PeriodEnd:    record.PeriodEnd,
	})
	return record.Clone(), nil
}

// Renew extends an existing subscription by quantity periods. A lapsed
// subscription restarts at the current time; an active one keeps its start
// and extends the paid-through timestamp.
func (e *Engine) Renew(accounts Accounts, quantity uint64) (*records.SubscriptionAccount, error) {
	merchant, order, err := e.shared(accounts)
	if err != nil {
		return nil, err
	}
	if quantity == 0 {
		return nil, ErrInvalidQuantity
	}
	sub, err := records.LoadSubscription(e.state, e.cfg.Program, accounts.Subscription)
	if err != nil {
		return nil, err
	}
	if sub.Merchant != accounts.Merchant {
		return nil, ErrWrongMerchant
	}
	if sub.Owner != accounts.Signer.Address {
		return nil, ErrNotPayer
	}
	name, err := catalog.PackageName(sub.Name)
	if err != nil {
		return nil, err
	}
	pkg, err := catalog.Resolve(merchant.Data, name)
	if err != nil {
		return nil, err
	}
	total := new(big.Int).Mul(new(big.Int).SetUint64(quantity), new(big.Int).SetUint64(pkg.Price))
	if new(big.Int).SetUint64(order.PaidAmount).Cmp(total) < 0 {
		return nil, ErrInsufficientPayment
	}

	now := e.nowFn()
	start, base := sub.PeriodStart, sub.PeriodEnd
	if now > sub.PeriodEnd {
		start, base = now, now
	}
	end := new(big.Int).Mul(big.NewInt(pkg.Duration), new(big.Int).SetUint64(quantity))
	end.Add(end, big.NewInt(base))
	if !end.IsInt64() {
		return nil, ErrPeriodOverflow
	}
	sub.PeriodStart = start
	sub.PeriodEnd = end.Int64()
	if err := e.writeSubscription(accounts.Subscription, accounts.Signer.Address, sub, false); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.SubscriptionRenewed{
		Subscription: accounts.Subscription,
		Quantity:     quantity,
		PeriodStart:  sub.PeriodStart,
		PeriodEnd:    sub.PeriodEnd,
	})
	return sub.Clone(), nil
}

// Cancel refunds the funding order inside the trial window and marks it
// Cancelled. Past the window the instruction is rejected outright.
func (e *Engine) Cancel(accounts CancelAccounts) (*records.OrderAccount, error) {
	merchant, order, err := e.shared(accounts.Accounts)
	if err != nil {
		return nil, err
	}
	sub, err := records.LoadSubscription(e.state, e.cfg.Program, accounts.Subscription)
	if err != nil {
		return nil, err
	}
	if sub.Merchant != accounts.Merchant {
		return nil, ErrWrongMerchant
	}
	if sub.Owner != accounts.Signer.Address {
		return nil, ErrNotPayer
	}
	if order.Token != accounts.Escrow {
		return nil, ErrWrongEscrow
	}
	custodian := pda.Custodian(e.cfg.Program)
	if err := custodian.Expect(accounts.Custodian); err != nil {
		return nil, err
	}
	refund, err := e.token.Account(accounts.RefundToken)
	if err != nil {
		return nil, err
	}
	if refund.Owner != order.Payer {
		return nil, ErrWrongRefundAccount
	}
	name, err := catalog.PackageName(sub.Name)
	if err != nil {
		return nil, err
	}
	pkg, err := catalog.Resolve(merchant.Data, name)
	if err != nil {
		return nil, err
	}
	now := e.nowFn()
	if now > sub.Joined+pkg.Trial {
		return nil, ErrTrialElapsed
	}

	if err := e.token.TransferSigned(accounts.Escrow, accounts.RefundToken, custodian, e.cfg.Program, order.PaidAmount); err != nil {
		return nil, err
	}
	order.Status = records.OrderCancelled
	order.Modified = now
	if err := e.rewriteOrder(accounts.Order, order); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.OrderCancelled{
		Order:  accounts.Order,
		Payer:  order.Payer,
		Amount: order.PaidAmount,
	})
	return order.Clone(), nil
}

// Subscription loads the initialized subscription record at addr.
func (e *Engine) Subscription(addr crypto.Address) (*records.SubscriptionAccount, error) {
	return records.LoadSubscription(e.state, e.cfg.Program, addr)
}

func (e *Engine) writeSubscription(addr, funder crypto.Address, record *records.SubscriptionAccount, allocate bool) error {
	encoded, err := record.Encode()
	if err != nil {
		return err
	}
	acc, ok, err := e.state.GetAccount(addr)
	if err != nil {
		return err
	}
	if !ok {
		if !allocate {
			return records.ErrNotFound
		}
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
