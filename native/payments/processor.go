package payments

import (
	"errors"
	"fmt"
	"log/slog"

	"paygate/core/events"
	"paygate/core/state"
	"paygate/core/types"
	"paygate/crypto"
	"paygate/native/merchant"
	"paygate/native/order"
	"paygate/native/records"
	"paygate/native/subscription"
	"paygate/native/token"
)

// ErrBadAccountList is returned when an instruction arrives with fewer
// accounts than its type requires.
var ErrBadAccountList = errors.New("payments: account list too short")

// Config carries the process-wide constants shared by all engines.
type Config struct {
	// Program is the payment program identity owning all records.
	Program crypto.Address
	// Operator is the platform operator key.
	Operator crypto.Address
	// TokenProgram is the external token primitive's identity.
	TokenProgram crypto.Address
	// MinFee floors every merchant's configured fee.
	MinFee uint64
	// SponsorFeeRate is the per-mille sponsor share of the protocol fee;
	// zero selects the default rate.
	SponsorFeeRate uint64
}

// Processor decodes instructions and applies them atomically: every account
// mutation of one instruction commits together or not at all.
type Processor struct {
	state    *state.Manager
	token    *token.Program
	registry *merchant.Registry
	orders   *order.Engine
	subs     *subscription.Engine
	log      *slog.Logger
}

// NewProcessor wires the engines over a shared state manager and token
// primitive.
func NewProcessor(mgr *state.Manager, tok *token.Program, cfg Config) *Processor {
	return &Processor{
		state:    mgr,
		token:    tok,
		registry: merchant.NewRegistry(mgr, merchant.Config{Program: cfg.Program, Operator: cfg.Operator, MinFee: cfg.MinFee}),
		orders: order.NewEngine(mgr, tok, order.Config{
			Program:        cfg.Program,
			Operator:       cfg.Operator,
			TokenProgram:   cfg.TokenProgram,
			SponsorFeeRate: cfg.SponsorFeeRate,
		}),
		subs: subscription.NewEngine(mgr, tok, subscription.Config{Program: cfg.Program}),
		log:  slog.Default(),
	}
}

// SetLogger overrides the processor logger; nil restores the default.
func (p *Processor) SetLogger(log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	p.log = log
}

// SetEmitter wires an event emitter into every engine.
func (p *Processor) SetEmitter(emitter events.Emitter) {
	p.registry.SetEmitter(emitter)
	p.orders.SetEmitter(emitter)
	p.subs.SetEmitter(emitter)
}

// SetNowFunc overrides the clock of every engine.
func (p *Processor) SetNowFunc(now func() int64) {
	p.orders.SetNowFunc(now)
	p.subs.SetNowFunc(now)
}

// Apply decodes and executes one instruction against the account list. On any
// failure the open transition is rolled back and no state change persists.
func (p *Processor) Apply(raw []byte, accounts []types.AccountMeta) error {
	inst, err := Decode(raw)
	if err != nil {
		p.log.Warn("instruction rejected", "error", err)
		return err
	}
	p.state.Begin()
	if err := p.dispatch(inst, accounts); err != nil {
		p.state.Rollback()
		p.log.Warn("instruction failed", "type", inst.Type.String(), "error", err)
		return err
	}
	if err := p.state.Commit(); err != nil {
		p.log.Error("state commit failed", "type", inst.Type.String(), "error", err)
		return err
	}
	p.log.Info("instruction applied", "type", inst.Type.String(), "accounts", len(accounts))
	return nil
}

// dispatch maps the positional account list onto the engine call for the
// instruction type. Trailing provider accounts beyond the documented list are
// tolerated and ignored.
func (p *Processor) dispatch(inst *Instruction, accounts []types.AccountMeta) error {
	switch inst.Type {
	case TypeRegisterMerchant:
		if len(accounts) < 2 {
			return fmt.Errorf("%w: %s needs signer and merchant record", ErrBadAccountList, inst.Type)
		}
		var sponsor crypto.Address
		if len(accounts) > 2 {
			sponsor = accounts[2].Address
		}
		_, err := p.registry.Register(accounts[0], accounts[1].Address, sponsor, merchant.Params{
			Seed: inst.RegisterMerchant.Seed,
			Fee:  inst.RegisterMerchant.Fee,
			Data: inst.RegisterMerchant.Data,
		})
		return err

	case TypeExpressCheckout:
		checkout, err := checkoutAccounts(accounts, inst.Type)
		if err != nil {
			return err
		}
		_, err = p.orders.ExpressCheckout(checkout, order.CheckoutParams{
			Amount:  inst.ExpressCheckout.Amount,
			OrderID: inst.ExpressCheckout.OrderID,
			Secret:  inst.ExpressCheckout.Secret,
			Data:    inst.ExpressCheckout.Data,
		})
		return err

	case TypeChainCheckout:
		checkout, err := checkoutAccounts(accounts, inst.Type)
		if err != nil {
			return err
		}
		_, err = p.orders.ChainCheckout(checkout, order.ChainParams{
			Amount: inst.ChainCheckout.Amount,
			Items:  inst.ChainCheckout.Items,
			Data:   inst.ChainCheckout.Data,
		})
		return err

	case TypeWithdraw:
		if len(accounts) < 6 {
			return fmt.Errorf("%w: %s needs six accounts", ErrBadAccountList, inst.Type)
		}
		withdraw := order.WithdrawAccounts{
			Signer:        accounts[0],
			Order:         accounts[1].Address,
			Merchant:      accounts[2].Address,
			Escrow:        accounts[3].Address,
			MerchantToken: accounts[4].Address,
			Custodian:     accounts[5].Address,
		}
		if len(accounts) > 6 {
			sub := accounts[6].Address
			withdraw.Subscription = &sub
		}
		_, err := p.orders.Withdraw(withdraw)
		return err

	case TypeSubscribe:
		shared, err := subscriptionAccounts(accounts, inst.Type)
		if err != nil {
			return err
		}
		_, err = p.subs.Subscribe(shared, subscription.SubscribeParams{
			Name: inst.Subscribe.Name,
			Data: inst.Subscribe.Data,
		})
		return err

	case TypeRenew:
		shared, err := subscriptionAccounts(accounts, inst.Type)
		if err != nil {
			return err
		}
		_, err = p.subs.Renew(shared, inst.Renew.Quantity)
		return err

	case TypeCancel:
		if len(accounts) < 7 {
			return fmt.Errorf("%w: %s needs seven accounts", ErrBadAccountList, inst.Type)
		}
		shared, err := subscriptionAccounts(accounts, inst.Type)
		if err != nil {
			return err
		}
		_, err = p.subs.Cancel(subscription.CancelAccounts{
			Accounts:    shared,
			Escrow:      accounts[4].Address,
			RefundToken: accounts[5].Address,
			Custodian:   accounts[6].Address,
		})
		return err

	default:
		return ErrUnknownInstruction
	}
}

func checkoutAccounts(accounts []types.AccountMeta, t InstructionType) (order.CheckoutAccounts, error) {
	if len(accounts) < 9 {
		return order.CheckoutAccounts{}, fmt.Errorf("%w: %s needs nine accounts", ErrBadAccountList, t)
	}
	return order.CheckoutAccounts{
		Signer:     accounts[0],
		Order:      accounts[1].Address,
		Merchant:   accounts[2].Address,
		Escrow:     accounts[3].Address,
		PayerToken: accounts[4].Address,
		Operator:   accounts[5].Address,
		Sponsor:    accounts[6].Address,
		Mint:       accounts[7].Address,
		Custodian:  accounts[8].Address,
	}, nil
}

func subscriptionAccounts(accounts []types.AccountMeta, t InstructionType) (subscription.Accounts, error) {
	if len(accounts) < 4 {
		return subscription.Accounts{}, fmt.Errorf("%w: %s needs four accounts", ErrBadAccountList, t)
	}
	return subscription.Accounts{
		Signer:       accounts[0],
		Subscription: accounts[1].Address,
		Merchant:     accounts[2].Address,
		Order:        accounts[3].Address,
	}, nil
}

// Merchant loads the initialized merchant record at addr.
func (p *Processor) Merchant(addr crypto.Address) (*records.MerchantAccount, error) {
	return p.registry.Merchant(addr)
}

// Order loads the initialized order record at addr.
func (p *Processor) Order(addr crypto.Address) (*records.OrderAccount, error) {
	return p.orders.Order(addr)
}

// Subscription loads the initialized subscription record at addr.
func (p *Processor) Subscription(addr crypto.Address) (*records.SubscriptionAccount, error) {
	return p.subs.Subscription(addr)
}

// TokenAccount loads the token account at addr.
func (p *Processor) TokenAccount(addr crypto.Address) (*token.Account, error) {
	return p.token.Account(addr)
}
