package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"trade-reporter/internal/types"
)

type ClientDetails struct {
	Token     string `json:"token"`
	BaseToken string `json:"baseToken"`
}

// Order is one trade event as posted by the trading bots. Raw keeps the
// document exactly as received so it can be archived untouched.
type Order struct {
	OrderID        string             `json:"orderId"`
	CreatedAt      Timestamp          `json:"createdAt"`
	Status         types.OrderStatus  `json:"status"`
	StrategyType   types.StrategyType `json:"strategyType"`
	ClientDetails  *ClientDetails     `json:"clientDetails"`
	FillPrice      Decimal            `json:"fillPrice"`
	FillQuantity   Decimal            `json:"fillQuantity"`
	Price          Decimal            `json:"price"`
	Quantity       Decimal            `json:"quantity"`
	TotalPrice     Decimal            `json:"totalPrice"`
	TransactionFee Decimal            `json:"transactionFee"`
	FeeType        string             `json:"feeType"`
	Type           types.OrderSide    `json:"type"`
	Account        json.RawMessage    `json:"account"`
	Raw            json.RawMessage    `json:"-"`
}

func (o *Order) UnmarshalJSON(b []byte) error {
	type plain Order
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*o = Order(p)
	o.Raw = append(json.RawMessage(nil), b...)
	return nil
}

func (o Order) Filled() bool {
	return o.Status == types.OrderStatusFilled
}

// Symbol joins the client token pair the way the trading desk names markets.
func (o Order) Symbol() string {
	if o.ClientDetails == nil {
		return "_"
	}
	return o.ClientDetails.Token + "_" + o.ClientDetails.BaseToken
}

// SecondaryAccount reports whether the order carries a truthy account marker.
func (o Order) SecondaryAccount() bool {
	return truthy(o.Account)
}

func truthy(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 {
		return false
	}
	switch string(v) {
	case "null", "false", "0", `""`:
		return false
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f != 0
	}
	return true
}

// DecodeOrders decodes each raw document, keeping input order.
func DecodeOrders(docs []json.RawMessage) ([]Order, error) {
	out := make([]Order, 0, len(docs))
	for _, d := range docs {
		var o Order
		if err := json.Unmarshal(d, &o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// DecodeFilled decodes only the FILLED documents, keeping input order. The
// status is read first so other records are skipped without their remaining
// fields ever being parsed; a record whose status cannot be read is not
// FILLED either.
func DecodeFilled(docs []json.RawMessage) ([]Order, error) {
	out := make([]Order, 0, len(docs))
	for i, d := range docs {
		var head struct {
			Status types.OrderStatus `json:"status"`
		}
		if err := json.Unmarshal(d, &head); err != nil || head.Status != types.OrderStatusFilled {
			continue
		}
		var o Order
		if err := json.Unmarshal(d, &o); err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
		out = append(out, o)
	}
	return out, nil
}
