package records

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"paygate/crypto"
)

// Storage shapes. RLP carries no signed integers, so timestamps travel as
// big.Int the same way other native records store them.

type storedMerchant struct {
	Status  uint8
	Owner   [crypto.AddressLength]byte
	Sponsor [crypto.AddressLength]byte
	Fee     uint64
	Data    string
}

type storedLineItem struct {
	Name     string
	Quantity uint64
}

type storedOrder struct {
	Status         uint8
	Created        *big.Int
	Modified       *big.Int
	Merchant       [crypto.AddressLength]byte
	Mint           [crypto.AddressLength]byte
	Token          [crypto.AddressLength]byte
	Payer          [crypto.AddressLength]byte
	ExpectedAmount uint64
	PaidAmount     uint64
	OrderID        string
	Secret         string
	Data           string
	Items          []storedLineItem
}

type storedSubscription struct {
	Status      uint8
	Owner       [crypto.AddressLength]byte
	Merchant    [crypto.AddressLength]byte
	Name        string
	Joined      *big.Int
	PeriodStart *big.Int
	PeriodEnd   *big.Int
	Data        string
}

func bigInt64(v int64) *big.Int { return big.NewInt(v) }

func int64Big(v *big.Int) int64 {
	if v == nil {
		return 0
	}
	return v.Int64()
}

// Encode serializes the merchant record for account storage.
func (m *MerchantAccount) Encode() ([]byte, error) {
	stored := &storedMerchant{
		Status:  uint8(m.Status),
		Owner:   m.Owner,
		Sponsor: m.Sponsor,
		Fee:     m.Fee,
		Data:    m.Data,
	}
	return rlp.EncodeToBytes(stored)
}

// DecodeMerchant parses account data as a merchant record. Empty data is an
// allocated-but-unwritten record and decodes to the uninitialized state.
func DecodeMerchant(data []byte) (*MerchantAccount, error) {
	if len(data) == 0 {
		return &MerchantAccount{}, nil
	}
	stored := new(storedMerchant)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, corrupt("merchant", err)
	}
	record := &MerchantAccount{
		Status:  MerchantStatus(stored.Status),
		Owner:   crypto.Address(stored.Owner),
		Sponsor: crypto.Address(stored.Sponsor),
		Fee:     stored.Fee,
		Data:    stored.Data,
	}
	if !record.Status.Valid() {
		return nil, corrupt("merchant", errInvalidStatus)
	}
	return record, nil
}

// Encode serializes the order record for account storage.
func (o *OrderAccount) Encode() ([]byte, error) {
	stored := &storedOrder{
		Status:         uint8(o.Status),
		Created:        bigInt64(o.Created),
		Modified:       bigInt64(o.Modified),
		Merchant:       o.Merchant,
		Mint:           o.Mint,
		Token:          o.Token,
		Payer:          o.Payer,
		ExpectedAmount: o.ExpectedAmount,
		PaidAmount:     o.PaidAmount,
		OrderID:        o.OrderID,
		Secret:         o.Secret,
		Data:           o.Data,
	}
	for _, item := range o.Items {
		stored.Items = append(stored.Items, storedLineItem(item))
	}
	return rlp.EncodeToBytes(stored)
}

// DecodeOrder parses account data as an order record.
func DecodeOrder(data []byte) (*OrderAccount, error) {
	if len(data) == 0 {
		return &OrderAccount{}, nil
	}
	stored := new(storedOrder)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, corrupt("order", err)
	}
	record := &OrderAccount{
		Status:         OrderStatus(stored.Status),
		Created:        int64Big(stored.Created),
		Modified:       int64Big(stored.Modified),
		Merchant:       crypto.Address(stored.Merchant),
		Mint:           crypto.Address(stored.Mint),
		Token:          crypto.Address(stored.Token),
		Payer:          crypto.Address(stored.Payer),
		ExpectedAmount: stored.ExpectedAmount,
		PaidAmount:     stored.PaidAmount,
		OrderID:        stored.OrderID,
		Secret:         stored.Secret,
		Data:           stored.Data,
	}
	for _, item := range stored.Items {
		record.Items = append(record.Items, LineItem(item))
	}
	if !record.Status.Valid() {
		return nil, corrupt("order", errInvalidStatus)
	}
	return record, nil
}

// Encode serializes the subscription record for account storage.
func (s *SubscriptionAccount) Encode() ([]byte, error) {
	stored := &storedSubscription{
		Status:      uint8(s.Status),
		Owner:       s.Owner,
		Merchant:    s.Merchant,
		Name:        s.Name,
		Joined:      bigInt64(s.Joined),
		PeriodStart: bigInt64(s.PeriodStart),
		PeriodEnd:   bigInt64(s.PeriodEnd),
		Data:        s.Data,
	}
	return rlp.EncodeToBytes(stored)
}

// DecodeSubscription parses account data as a subscription record.
func DecodeSubscription(data []byte) (*SubscriptionAccount, error) {
	if len(data) == 0 {
		return &SubscriptionAccount{}, nil
	}
	stored := new(storedSubscription)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, corrupt("subscription", err)
	}
	record := &SubscriptionAccount{
		Status:      SubscriptionStatus(stored.Status),
		Owner:       crypto.Address(stored.Owner),
		Merchant:    crypto.Address(stored.Merchant),
		Name:        stored.Name,
		Joined:      int64Big(stored.Joined),
		PeriodStart: int64Big(stored.PeriodStart),
		PeriodEnd:   int64Big(stored.PeriodEnd),
		Data:        stored.Data,
	}
	if !record.Status.Valid() {
		return nil, corrupt("subscription", errInvalidStatus)
	}
	return record, nil
}
