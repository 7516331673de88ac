// Package records defines the serialized state records the payment processor
// reads and rewrites inside ledger accounts: merchants, orders and
// subscriptions. Engines share these schemas; every decode treats the account
// contents as untrusted input.
package records

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"paygate/crypto"
)

// DefaultData is the metadata value written when a caller supplies none.
const DefaultData = "{}"

var (
	// ErrNotFound is returned when a referenced record address is not
	// allocated.
	ErrNotFound = errors.New("records: account not found")
	// ErrWrongOwner is returned when a record account is not owned by the
	// payment program.
	ErrWrongOwner = errors.New("records: wrong owner for account")
	// ErrUninitialized is returned when a record has not been written yet.
	ErrUninitialized = errors.New("records: record not initialized")
	// ErrCorrupt is returned when account data cannot be decoded as the
	// expected record.
	ErrCorrupt = errors.New("records: corrupt record data")
)

// MerchantStatus tracks the merchant record lifecycle.
type MerchantStatus uint8

const (
	MerchantUninitialized MerchantStatus = iota
	MerchantInitialized
)

// Valid reports whether the status value is within the supported range.
func (s MerchantStatus) Valid() bool {
	return s == MerchantUninitialized || s == MerchantInitialized
}

func (s MerchantStatus) String() string {
	switch s {
	case MerchantUninitialized:
		return "uninitialized"
	case MerchantInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

// OrderStatus tracks the order record lifecycle. Transitions only move
// forward; Cancelled and Withdrawn are terminal.
type OrderStatus uint8

const (
	OrderUninitialized OrderStatus = iota
	OrderPending
	OrderPaid
	OrderCancelled
	OrderWithdrawn
)

// Valid reports whether the status value is within the supported range.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderUninitialized, OrderPending, OrderPaid, OrderCancelled, OrderWithdrawn:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status admits no further transition.
func (s OrderStatus) Terminal() bool {
	return s == OrderCancelled || s == OrderWithdrawn
}

func (s OrderStatus) String() string {
	switch s {
	case OrderUninitialized:
		return "uninitialized"
	case OrderPending:
		return "pending"
	case OrderPaid:
		return "paid"
	case OrderCancelled:
		return "cancelled"
	case OrderWithdrawn:
		return "withdrawn"
	default:
		return "unknown"
	}
}

// SubscriptionStatus tracks the subscription record lifecycle.
type SubscriptionStatus uint8

const (
	SubscriptionUninitialized SubscriptionStatus = iota
	SubscriptionInitialized
)

// Valid reports whether the status value is within the supported range.
func (s SubscriptionStatus) Valid() bool {
	return s == SubscriptionUninitialized || s == SubscriptionInitialized
}

func (s SubscriptionStatus) String() string {
	switch s {
	case SubscriptionUninitialized:
		return "uninitialized"
	case SubscriptionInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

// MerchantAccount is the registered seller record.
type MerchantAccount struct {
	Status MerchantStatus
	// Owner is the only key allowed to control the withdrawal destination.
	Owner crypto.Address
	// Sponsor receives a share of the protocol fee; defaults to the
	// platform operator.
	Sponsor crypto.Address
	// Fee is the minimum platform fee in native units.
	Fee uint64
	// Data is opaque merchant-defined JSON, including the optional
	// subscription package catalog.
	Data string
}

// Initialized reports whether the record has been written.
func (m *MerchantAccount) Initialized() bool {
	return m != nil && m.Status == MerchantInitialized
}

// Clone returns a deep copy.
func (m *MerchantAccount) Clone() *MerchantAccount {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// LineItem is one entry of a chain checkout's multi-item manifest.
type LineItem struct {
	Name     string
	Quantity uint64
}

// OrderAccount represents one checkout and the escrow holding its funds.
type OrderAccount struct {
	Status   OrderStatus
	Created  int64
	Modified int64
	// Merchant is the owning merchant record address.
	Merchant crypto.Address
	// Mint identifies the asset paid.
	Mint crypto.Address
	// Token is the escrow token account custodying the paid funds.
	Token crypto.Address
	// Payer is the only key that may cancel or be refunded.
	Payer          crypto.Address
	ExpectedAmount uint64
	PaidAmount     uint64
	OrderID        string
	Secret         string
	// Data is opaque JSON; a "subscription" key links the order to a
	// subscription record.
	Data string
	// Items carries the chain-checkout manifest; empty for single orders.
	Items []LineItem
}

// Initialized reports whether the record has been written.
func (o *OrderAccount) Initialized() bool {
	return o != nil && o.Status != OrderUninitialized
}

// Clone returns a deep copy.
func (o *OrderAccount) Clone() *OrderAccount {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Items != nil {
		clone.Items = append([]LineItem(nil), o.Items...)
	}
	return &clone
}

// SubscriptionAccount represents a recurring-billing relationship.
type SubscriptionAccount struct {
	Status SubscriptionStatus
	// Owner is the paying subscriber.
	Owner crypto.Address
	// Merchant is the owning merchant record address.
	Merchant crypto.Address
	// Name follows the "<merchant-scoped-id>:<package-name>" convention.
	Name        string
	Joined      int64
	PeriodStart int64
	// PeriodEnd is the paid-through timestamp.
	PeriodEnd int64
	Data      string
}

// Initialized reports whether the record has been written.
func (s *SubscriptionAccount) Initialized() bool {
	return s != nil && s.Status == SubscriptionInitialized
}

// Clone returns a deep copy.
func (s *SubscriptionAccount) Clone() *SubscriptionAccount {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// SubscriptionRef extracts the subscription address string an order's
// metadata points at. The second return reports whether the key is present.
func SubscriptionRef(data string) (string, bool) {
	ref := gjson.Get(data, "subscription")
	if !ref.Exists() || ref.Type != gjson.String {
		return "", false
	}
	return ref.String(), true
}

func corrupt(kind string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrCorrupt, kind, err)
}
