package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TradeType int

const (
	TradeBuy TradeType = iota
	TradeSell
	TradeAddStock
	TradeRemoveStock
)

var tradeTypeNames = [...]string{"Buy", "Sell", "AddStock", "RemoveStock"}

func (t TradeType) String() string {
	if t < 0 || int(t) >= len(tradeTypeNames) {
		return fmt.Sprintf("TradeType(%d)", int(t))
	}
	return tradeTypeNames[t]
}

func ParseTradeType(s string) (TradeType, error) {
	for i, n := range tradeTypeNames {
		if n == s {
			return TradeType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown trade type %q", s)
}

func (t TradeType) MarshalJSON() ([]byte, error) {
	if t < 0 || int(t) >= len(tradeTypeNames) {
		return nil, fmt.Errorf("unknown trade type %d", int(t))
	}
	return json.Marshal(t.String())
}

func (t *TradeType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTradeType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// TradeKeyLayout encodes a UTC timestamp as a file-name-safe key that sorts chronologically.
const TradeKeyLayout = "2006-01-02T15-04-05.000000000Z"

// Trade is an immutable record of a completed economic action.
type Trade struct {
	Type           TradeType       `json:"trade_type"`
	Item           string          `json:"item"`
	Amount         int             `json:"amount"`
	AmountCurrency decimal.Decimal `json:"amount_currency"`
	UserUUID       string          `json:"user_uuid"`
	Timestamp      time.Time       `json:"timestamp"`
}

// TradeKey is the storage key of a trade. Two trades with the same timestamp share a key.
func TradeKey(t Trade) string {
	return t.Timestamp.UTC().Format(TradeKeyLayout)
}
