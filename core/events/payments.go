package events

import (
	"strconv"

	"paygate/core/types"
	"paygate/crypto"
)

const (
	TypeMerchantRegistered  = "merchant.registered"
	TypeOrderPaid           = "order.paid"
	TypeOrderWithdrawn      = "order.withdrawn"
	TypeOrderCancelled      = "order.cancelled"
	TypeSubscriptionCreated = "subscription.created"
	TypeSubscriptionRenewed = "subscription.renewed"
)

// MerchantRegistered is emitted once a merchant record has been initialised.
type MerchantRegistered struct {
	Merchant crypto.Address
	Owner    crypto.Address
	Sponsor  crypto.Address
	Fee      uint64
}

func (MerchantRegistered) EventType() string { return TypeMerchantRegistered }

func (e MerchantRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeMerchantRegistered,
		Attributes: map[string]string{
			"merchant": e.Merchant.String(),
			"owner":    e.Owner.String(),
			"sponsor":  e.Sponsor.String(),
			"fee":      strconv.FormatUint(e.Fee, 10),
		},
	}
}

// OrderPaid is emitted when a checkout settles into escrow.
type OrderPaid struct {
	Order    crypto.Address
	Merchant crypto.Address
	Payer    crypto.Address
	Mint     crypto.Address
	Amount   uint64
	OrderID  string
}

func (OrderPaid) EventType() string { return TypeOrderPaid }

func (e OrderPaid) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderPaid,
		Attributes: map[string]string{
			"order":    e.Order.String(),
			"merchant": e.Merchant.String(),
			"payer":    e.Payer.String(),
			"mint":     e.Mint.String(),
			"amount":   strconv.FormatUint(e.Amount, 10),
			"orderId":  e.OrderID,
		},
	}
}

// OrderWithdrawn is emitted when escrowed funds reach the merchant.
type OrderWithdrawn struct {
	Order    crypto.Address
	Merchant crypto.Address
	Amount   uint64
}

func (OrderWithdrawn) EventType() string { return TypeOrderWithdrawn }

func (e OrderWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderWithdrawn,
		Attributes: map[string]string{
			"order":    e.Order.String(),
			"merchant": e.Merchant.String(),
			"amount":   strconv.FormatUint(e.Amount, 10),
		},
	}
}

// OrderCancelled is emitted when a trial cancellation refunds the payer.
type OrderCancelled struct {
	Order  crypto.Address
	Payer  crypto.Address
	Amount uint64
}

func (OrderCancelled) EventType() string { return TypeOrderCancelled }

func (e OrderCancelled) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderCancelled,
		Attributes: map[string]string{
			"order":  e.Order.String(),
			"payer":  e.Payer.String(),
			"amount": strconv.FormatUint(e.Amount, 10),
		},
	}
}

// SubscriptionCreated is emitted when a paid order is consumed into a new
// subscription.
type SubscriptionCreated struct {
	Subscription crypto.Address
	Merchant     crypto.Address
	Owner        crypto.Address
	Name         string
	PeriodEnd    int64
}

func (SubscriptionCreated) EventType() string { return TypeSubscriptionCreated }

func (e SubscriptionCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeSubscriptionCreated,
		Attributes: map[string]string{
			"subscription": e.Subscription.String(),
			"merchant":     e.Merchant.String(),
			"owner":        e.Owner.String(),
			"name":         e.Name,
			"periodEnd":    strconv.FormatInt(e.PeriodEnd, 10),
		},
	}
}

// SubscriptionRenewed is emitted after a renewal extends the paid-through
// timestamp.
type SubscriptionRenewed struct {
	Subscription crypto.Address
	Quantity     uint64
	PeriodStart  int64
	PeriodEnd    int64
}

func (SubscriptionRenewed) EventType() string { return TypeSubscriptionRenewed }

func (e SubscriptionRenewed) Event() *types.Event {
	return &types.Event{
		Type: TypeSubscriptionRenewed,
		Attributes: map[string]string{
			"subscription": e.Subscription.String(),
			"quantity":     strconv.FormatUint(e.Quantity, 10),
			"periodStart":  strconv.FormatInt(e.PeriodStart, 10),
			"periodEnd":    strconv.FormatInt(e.PeriodEnd, 10),
		},
	}
}
