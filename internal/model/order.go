package model

import (
	"encoding/json"
	"fmt"
)

type OrderType int

const (
	OrderBuy OrderType = iota
	OrderSell
	OrderDeposit
	OrderWithdraw
)

var orderTypeNames = [...]string{"Buy", "Sell", "Deposit", "Withdraw"}

func (t OrderType) String() string {
	if t < 0 || int(t) >= len(orderTypeNames) {
		return fmt.Sprintf("OrderType(%d)", int(t))
	}
	return orderTypeNames[t]
}

func ParseOrderType(s string) (OrderType, error) {
	for i, n := range orderTypeNames {
		if n == s {
			return OrderType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown order type %q", s)
}

func (t OrderType) MarshalJSON() ([]byte, error) {
	if t < 0 || int(t) >= len(orderTypeNames) {
		return nil, fmt.Errorf("unknown order type %d", int(t))
	}
	return json.Marshal(t.String())
}

func (t *OrderType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseOrderType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Order is a queued intent. Orders are not matched or executed here.
type Order struct {
	Type     OrderType `json:"order_type"`
	Item     string    `json:"item"`
	Amount   int       `json:"amount"`
	UserUUID string    `json:"user_uuid"`
}
