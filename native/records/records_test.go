package records

import (
	"errors"
	"math/big"
	"testing"

	"paygate/core/state"
	"paygate/core/types"
	"paygate/crypto"
	"paygate/storage"
)

func addr(fill byte) crypto.Address {
	var a crypto.Address
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestOrderStatusTerminal(t *testing.T) {
	for status, terminal := range map[OrderStatus]bool{
		OrderUninitialized: false,
		OrderPending:       false,
		OrderPaid:          false,
		OrderCancelled:     true,
		OrderWithdrawn:     true,
	} {
		if status.Terminal() != terminal {
			t.Fatalf("status %s: terminal=%v", status, status.Terminal())
		}
	}
	if OrderStatus(99).Valid() {
		t.Fatal("out-of-range status must not validate")
	}
}

func TestDecodeEmptyDataIsUninitialized(t *testing.T) {
	m, err := DecodeMerchant(nil)
	if err != nil || m.Initialized() {
		t.Fatalf("empty merchant: %+v err=%v", m, err)
	}
	o, err := DecodeOrder(nil)
	if err != nil || o.Initialized() {
		t.Fatalf("empty order: %+v err=%v", o, err)
	}
	s, err := DecodeSubscription(nil)
	if err != nil || s.Initialized() {
		t.Fatalf("empty subscription: %+v err=%v", s, err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	garbage := []byte{0xde, 0xad, 0xbe, 0xef}
	if _, err := DecodeMerchant(garbage); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("merchant: expected ErrCorrupt, got %v", err)
	}
	if _, err := DecodeOrder(garbage); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("order: expected ErrCorrupt, got %v", err)
	}
	if _, err := DecodeSubscription(garbage); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("subscription: expected ErrCorrupt, got %v", err)
	}
}

func TestOrderCodecPreservesManifest(t *testing.T) {
	order := &OrderAccount{
		Status:         OrderPaid,
		Created:        1700000000,
		Modified:       1700000001,
		Merchant:       addr(0x01),
		Mint:           addr(0x02),
		Token:          addr(0x03),
		Payer:          addr(0x04),
		ExpectedAmount: 500,
		PaidAmount:     500,
		OrderID:        "1693872000",
		Data:           DefaultData,
		Items: []LineItem{
			{Name: "espresso", Quantity: 2},
			{Name: "filter", Quantity: 1},
		},
	}
	encoded, err := order.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeOrder(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Items) != 2 || decoded.Items[0].Name != "espresso" || decoded.Items[1].Quantity != 1 {
		t.Fatalf("manifest lost: %+v", decoded.Items)
	}
	if decoded.Created != order.Created || decoded.Status != OrderPaid {
		t.Fatalf("fields lost: %+v", decoded)
	}
}

func TestSubscriptionRef(t *testing.T) {
	ref, ok := SubscriptionRef(`{"subscription": "pay1abc"}`)
	if !ok || ref != "pay1abc" {
		t.Fatalf("unexpected ref %q ok=%v", ref, ok)
	}
	if _, ok := SubscriptionRef(`{}`); ok {
		t.Fatal("missing key must not resolve")
	}
	if _, ok := SubscriptionRef(`{"subscription": 12}`); ok {
		t.Fatal("non-string ref must not resolve")
	}
	if _, ok := SubscriptionRef("garbage"); ok {
		t.Fatal("malformed data must not resolve")
	}
}

func TestLoadMerchantValidation(t *testing.T) {
	program := addr(0xAA)
	other := addr(0xBB)
	mgr := state.NewManager(storage.NewMemDB())

	merchantAddr := addr(0x01)
	if _, err := LoadMerchant(mgr, program, merchantAddr); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Owned by the wrong program.
	if err := mgr.PutAccount(merchantAddr, &types.Account{Owner: other, Balance: big.NewInt(0)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := LoadMerchant(mgr, program, merchantAddr); !errors.Is(err, ErrWrongOwner) {
		t.Fatalf("expected ErrWrongOwner, got %v", err)
	}

	// Allocated but never written.
	if err := mgr.PutAccount(merchantAddr, &types.Account{Owner: program, Balance: big.NewInt(0)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := LoadMerchant(mgr, program, merchantAddr); !errors.Is(err, ErrUninitialized) {
		t.Fatalf("expected ErrUninitialized, got %v", err)
	}

	record := &MerchantAccount{Status: MerchantInitialized, Owner: addr(0x02), Sponsor: addr(0x03), Fee: 5000, Data: DefaultData}
	encoded, err := record.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := mgr.PutAccount(merchantAddr, &types.Account{Owner: program, Balance: big.NewInt(0), Data: encoded}); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, err := LoadMerchant(mgr, program, merchantAddr)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Fee != 5000 || loaded.Owner != addr(0x02) {
		t.Fatalf("unexpected record: %+v", loaded)
	}
}
