package model_test

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"hecstore.ai/internal/model"
	"hecstore.ai/internal/spatial"
)

func TestSchemas_ValidatePersistedRecords(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var doc any
		if err := json.Unmarshal(b, &doc); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if err := s.Validate(doc); err != nil {
			t.Fatalf("validate %s: %v", b, err)
		}
	}

	validate(compile("user.schema.json"), model.User{
		UUID:     "069a79f4-44e9-4726-a5be-fca90e38aaf5",
		Username: "Notch",
		Balance:  decimal.RequireFromString("12.5"),
	})
	validate(compile("pair.schema.json"), model.Pair{
		Item:          "diamond",
		ItemStock:     64,
		CurrencyStock: decimal.NewFromInt(10),
		Price:         decimal.RequireFromString("0.25"),
	})
	validate(compile("orders.schema.json"), []model.Order{
		{Type: model.OrderBuy, Item: "diamond", Amount: 10, UserUUID: "u1"},
		{Type: model.OrderDeposit, Item: "iron_ingot", Amount: 64, UserUUID: "u2"},
	})
	validate(compile("trade.schema.json"), model.Trade{
		Type:           model.TradeAddStock,
		Item:           "diamond",
		Amount:         5,
		AmountCurrency: decimal.NewFromInt(-3),
		UserUUID:       "u1",
		Timestamp:      time.Date(2025, 1, 2, 3, 4, 5, 6, time.UTC),
	})

	n, err := model.NewNode(2, spatial.Position{X: 1, Y: 64, Z: 1})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	chestSchema := compile("chest.schema.json")
	for _, c := range n.Chests {
		validate(chestSchema, c)
	}
}
