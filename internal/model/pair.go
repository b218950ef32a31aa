package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Pair is the market record of one tradable item against the currency.
type Pair struct {
	Item          string          `json:"item"`
	ItemStock     int             `json:"item_stock"`
	CurrencyStock decimal.Decimal `json:"currency_stock"`
	// Price is the per-item price set by an operator. Zero means unset.
	Price decimal.Decimal `json:"price"`
}

func PairKey(p Pair) string { return p.Item }

func (p Pair) Validate() error {
	if strings.TrimSpace(p.Item) == "" {
		return fmt.Errorf("pair: empty item")
	}
	if p.Item == "." || p.Item == ".." || strings.ContainsAny(p.Item, "/\\\x00") {
		return fmt.Errorf("pair %q: item is not a plain name", p.Item)
	}
	if p.ItemStock < 0 {
		return fmt.Errorf("pair %s: negative item stock %d", p.Item, p.ItemStock)
	}
	if p.CurrencyStock.IsNegative() {
		return fmt.Errorf("pair %s: negative currency stock %s", p.Item, p.CurrencyStock)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("pair %s: negative price %s", p.Item, p.Price)
	}
	return nil
}
