package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"paygate/core/types"
	"paygate/crypto"
	"paygate/native/catalog"
	"paygate/native/merchant"
	"paygate/native/order"
	"paygate/native/payments"
	"paygate/native/pda"
	"paygate/native/records"
	"paygate/native/subscription"
	"paygate/native/token"
)

const (
	codePayInvalidParams = -32041
	codePayNotFound      = -32042
	codePayUnauthorized  = -32043
	codePayConflict      = -32044
	codePayInternal      = -32045
)

type accountMetaParams struct {
	Address  string `json:"address"`
	Signer   bool   `json:"signer,omitempty"`
	Writable bool   `json:"writable,omitempty"`
}

type submitInstructionParams struct {
	Instruction string              `json:"instruction"`
	Accounts    []accountMetaParams `json:"accounts"`
}

type addressParams struct {
	Address string `json:"address"`
}

type submitInstructionResult struct {
	OK   bool   `json:"ok"`
	Type string `json:"type"`
}

type lineItemJSON struct {
	Name     string `json:"name"`
	Quantity uint64 `json:"quantity"`
}

type merchantJSON struct {
	Address string `json:"address"`
	Status  string `json:"status"`
	Owner   string `json:"owner"`
	Sponsor string `json:"sponsor"`
	Fee     uint64 `json:"fee"`
	Data    string `json:"data"`
}

type orderJSON struct {
	Address        string         `json:"address"`
	Status         string         `json:"status"`
	Created        int64          `json:"created"`
	Modified       int64          `json:"modified"`
	Merchant       string         `json:"merchant"`
	Mint           string         `json:"mint"`
	Token          string         `json:"token"`
	Payer          string         `json:"payer"`
	ExpectedAmount uint64         `json:"expectedAmount"`
	PaidAmount     uint64         `json:"paidAmount"`
	OrderID        string         `json:"orderId"`
	Secret         string         `json:"secret,omitempty"`
	Data           string         `json:"data"`
	Items          []lineItemJSON `json:"items,omitempty"`
}

type subscriptionJSON struct {
	Address     string `json:"address"`
	Status      string `json:"status"`
	Owner       string `json:"owner"`
	Merchant    string `json:"merchant"`
	Name        string `json:"name"`
	Joined      int64  `json:"joined"`
	PeriodStart int64  `json:"periodStart"`
	PeriodEnd   int64  `json:"periodEnd"`
	Data        string `json:"data"`
}

type tokenAccountJSON struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Amount  uint64 `json:"amount"`
}

func (s *Server) handleSubmitInstruction(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codePayInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params submitInstructionParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePayInvalidParams, "invalid_params", err.Error())
		return
	}
	raw, err := parseHexBytes(params.Instruction)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePayInvalidParams, "invalid_params", err.Error())
		return
	}
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, req.ID, codePayInvalidParams, "invalid_params", "instruction required")
		return
	}
	accounts := make([]types.AccountMeta, 0, len(params.Accounts))
	for _, meta := range params.Accounts {
		addr, err := crypto.DecodeAddress(meta.Address)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codePayInvalidParams, "invalid_params", err.Error())
			return
		}
		accounts = append(accounts, types.AccountMeta{Address: addr, Signer: meta.Signer, Writable: meta.Writable})
	}

	instructionType := payments.InstructionType(raw[0]).String()
	if err := s.processor.Apply(raw, accounts); err != nil {
		s.metrics.ObserveFailed(instructionType)
		writePaymentsError(w, req.ID, err)
		return
	}
	s.metrics.ObserveApplied(instructionType)
	writeResult(w, req.ID, submitInstructionResult{OK: true, Type: instructionType})
}

func (s *Server) handleGetMerchant(w http.ResponseWriter, req *RPCRequest) {
	addr, ok := parseAddressParam(w, req)
	if !ok {
		return
	}
	record, err := s.processor.Merchant(addr)
	if err != nil {
		writePaymentsError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, merchantJSON{
		Address: addr.String(),
		Status:  record.Status.String(),
		Owner:   record.Owner.String(),
		Sponsor: record.Sponsor.String(),
		Fee:     record.Fee,
		Data:    record.Data,
	})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, req *RPCRequest) {
	addr, ok := parseAddressParam(w, req)
	if !ok {
		return
	}
	record, err := s.processor.Order(addr)
	if err != nil {
		writePaymentsError(w, req.ID, err)
		return
	}
	result := orderJSON{
		Address:        addr.String(),
		Status:         record.Status.String(),
		Created:        record.Created,
		Modified:       record.Modified,
		Merchant:       record.Merchant.String(),
		Mint:           record.Mint.String(),
		Token:          record.Token.String(),
		Payer:          record.Payer.String(),
		ExpectedAmount: record.ExpectedAmount,
		PaidAmount:     record.PaidAmount,
		OrderID:        record.OrderID,
		Secret:         record.Secret,
		Data:           record.Data,
	}
	for _, item := range record.Items {
		result.Items = append(result.Items, lineItemJSON(item))
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, req *RPCRequest) {
	addr, ok := parseAddressParam(w, req)
	if !ok {
		return
	}
	record, err := s.processor.Subscription(addr)
	if err != nil {
		writePaymentsError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, subscriptionJSON{
		Address:     addr.String(),
		Status:      record.Status.String(),
		Owner:       record.Owner.String(),
		Merchant:    record.Merchant.String(),
		Name:        record.Name,
		Joined:      record.Joined,
		PeriodStart: record.PeriodStart,
		PeriodEnd:   record.PeriodEnd,
		Data:        record.Data,
	})
}

func (s *Server) handleGetTokenAccount(w http.ResponseWriter, req *RPCRequest) {
	addr, ok := parseAddressParam(w, req)
	if !ok {
		return
	}
	record, err := s.processor.TokenAccount(addr)
	if err != nil {
		writePaymentsError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, tokenAccountJSON{
		Address: addr.String(),
		Mint:    record.Mint.String(),
		Owner:   record.Owner.String(),
		Amount:  record.Amount,
	})
}

func parseAddressParam(w http.ResponseWriter, req *RPCRequest) (crypto.Address, bool) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codePayInvalidParams, "invalid_params", "exactly one parameter object expected")
		return crypto.Address{}, false
	}
	var params addressParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePayInvalidParams, "invalid_params", err.Error())
		return crypto.Address{}, false
	}
	addr, err := crypto.DecodeAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePayInvalidParams, "invalid_params", err.Error())
		return crypto.Address{}, false
	}
	return addr, true
}

func parseHexBytes(value string) ([]byte, error) {
	trimmed := strings.TrimSpace(value)
	cleaned := strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	if cleaned == "" {
		return []byte{}, nil
	}
	return hex.DecodeString(cleaned)
}

func writePaymentsError(w http.ResponseWriter, id interface{}, err error) {
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	code := codePayInternal
	message := "internal_error"
	switch {
	case errors.Is(err, records.ErrNotFound) || errors.Is(err, records.ErrUninitialized) ||
		errors.Is(err, token.ErrAccountNotFound):
		status = http.StatusNotFound
		code = codePayNotFound
		message = "not_found"
	case errors.Is(err, merchant.ErrMissingSignature) || errors.Is(err, order.ErrMissingSignature) ||
		errors.Is(err, subscription.ErrMissingSignature) || errors.Is(err, subscription.ErrNotPayer) ||
		errors.Is(err, records.ErrWrongOwner) || errors.Is(err, token.ErrUnauthorized) ||
		errors.Is(err, pda.ErrMismatch) || errors.Is(err, order.ErrWrongDestination):
		status = http.StatusForbidden
		code = codePayUnauthorized
		message = "unauthorized"
	case errors.Is(err, payments.ErrEmptyInstruction) || errors.Is(err, payments.ErrUnknownInstruction) ||
		errors.Is(err, payments.ErrBadPayload) || errors.Is(err, payments.ErrBadAccountList) ||
		errors.Is(err, catalog.ErrMalformedName) || errors.Is(err, catalog.ErrInvalidCatalog) ||
		errors.Is(err, catalog.ErrUnknownPackage) || errors.Is(err, catalog.ErrInvalidPackage) ||
		errors.Is(err, subscription.ErrInvalidQuantity) || errors.Is(err, subscription.ErrPeriodOverflow):
		status = http.StatusBadRequest
		code = codePayInvalidParams
		message = "invalid_params"
	case errors.Is(err, merchant.ErrAlreadyRegistered) || errors.Is(err, order.ErrOrderExists) ||
		errors.Is(err, order.ErrAlreadySettled) || errors.Is(err, order.ErrStillInTrial) ||
		errors.Is(err, order.ErrWrongMerchant) || errors.Is(err, order.ErrWrongEscrow) ||
		errors.Is(err, order.ErrWrongSponsor) || errors.Is(err, order.ErrWrongOperator) ||
		errors.Is(err, order.ErrMintMismatch) || errors.Is(err, order.ErrSubscriptionRequired) ||
		errors.Is(err, order.ErrWrongSubscription) || errors.Is(err, subscription.ErrAlreadySubscribed) ||
		errors.Is(err, subscription.ErrOrderNotPaid) || errors.Is(err, subscription.ErrWrongMerchant) ||
		errors.Is(err, subscription.ErrWrongOrderLink) || errors.Is(err, subscription.ErrInsufficientPayment) ||
		errors.Is(err, subscription.ErrTrialElapsed) || errors.Is(err, subscription.ErrWrongEscrow) ||
		errors.Is(err, subscription.ErrWrongRefundAccount) || errors.Is(err, token.ErrInsufficientFunds) ||
		errors.Is(err, token.ErrMintMismatch):
		status = http.StatusConflict
		code = codePayConflict
		message = "conflict"
	}
	writeError(w, status, id, code, message, err.Error())
}
