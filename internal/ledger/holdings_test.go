package ledger_test

import (
	"testing"
	"time"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/dates"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/ledger"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/model"
)

func tx(symbol, txType string, qty float64, date string) model.Transaction {
	d, err := dates.Parse(date)
	if err != nil {
		panic(err)
	}
	return model.Transaction{
		Symbol:       symbol,
		Type:         txType,
		Quantity:     qty,
		PricePerUnit: 100,
		Currency:     "USD",
		Date:         d,
	}
}

// TestReconstruct tests holdings reconstruction from the transaction log.
//
// WHY: Every valuation starts from these sums. The date cutoff, the sign
// convention, and the inclusion of closed-out symbols are all contract points
// the orchestrator depends on.
func TestReconstruct(t *testing.T) {
	t.Run("buy then partial sell scenario", func(t *testing.T) {
		log := []model.Transaction{
			tx("AAPL", model.TransactionBuy, 10, "2024-01-01"),
			tx("AAPL", model.TransactionSell, 4, "2024-02-01"),
		}

		mid := ledger.Reconstruct(log, mustDate("2024-01-15"))
		if mid["AAPL"] != 10 {
			t.Errorf("Expected 10 AAPL on 2024-01-15, got %v", mid["AAPL"])
		}

		after := ledger.Reconstruct(log, mustDate("2024-03-01"))
		if after["AAPL"] != 6 {
			t.Errorf("Expected 6 AAPL on 2024-03-01, got %v", after["AAPL"])
		}
	})

	t.Run("holdings stable between transactions", func(t *testing.T) {
		log := []model.Transaction{
			tx("MSFT", model.TransactionBuy, 5, "2023-06-01"),
			tx("MSFT", model.TransactionBuy, 3, "2023-09-15"),
		}

		// No MSFT transactions in (2023-06-02, 2023-09-14].
		d1 := ledger.Reconstruct(log, mustDate("2023-06-02"))
		d2 := ledger.Reconstruct(log, mustDate("2023-09-14"))
		if d1["MSFT"] != d2["MSFT"] {
			t.Errorf("Holdings changed without transactions: %v vs %v", d1["MSFT"], d2["MSFT"])
		}
	})

	t.Run("includes closed out symbols", func(t *testing.T) {
		log := []model.Transaction{
			tx("SHEL", model.TransactionBuy, 8, "2024-01-10"),
			tx("SHEL", model.TransactionSell, 8, "2024-01-20"),
		}

		holdings := ledger.Reconstruct(log, mustDate("2024-02-01"))
		qty, present := holdings["SHEL"]
		if !present {
			t.Fatal("Expected closed-out symbol to still appear in holdings")
		}
		if qty != 0 {
			t.Errorf("Expected 0 quantity for closed position, got %v", qty)
		}
	})

	t.Run("transactions after cutoff are excluded", func(t *testing.T) {
		log := []model.Transaction{
			tx("AAPL", model.TransactionBuy, 10, "2024-01-01"),
			tx("AAPL", model.TransactionBuy, 10, "2024-05-01"),
		}

		holdings := ledger.Reconstruct(log, mustDate("2024-04-30"))
		if holdings["AAPL"] != 10 {
			t.Errorf("Expected 10, got %v", holdings["AAPL"])
		}
	})

	t.Run("order independent for same cutoff", func(t *testing.T) {
		a := []model.Transaction{
			tx("A", model.TransactionBuy, 1, "2024-01-03"),
			tx("A", model.TransactionSell, 2, "2024-01-01"),
			tx("A", model.TransactionBuy, 4, "2024-01-02"),
		}
		b := []model.Transaction{a[2], a[0], a[1]}

		ha := ledger.Reconstruct(a, mustDate("2024-01-31"))
		hb := ledger.Reconstruct(b, mustDate("2024-01-31"))
		if ha["A"] != hb["A"] {
			t.Errorf("Reconstruct is order dependent: %v vs %v", ha["A"], hb["A"])
		}
	})
}

func TestPositiveOnly(t *testing.T) {
	t.Run("drops zero and negative positions", func(t *testing.T) {
		holdings := map[string]float64{
			"AAPL": 6,
			"SHEL": 0,
			"BAD":  -2,
		}
		positive := ledger.PositiveOnly(holdings)
		if len(positive) != 1 {
			t.Fatalf("Expected 1 position, got %d", len(positive))
		}
		if positive["AAPL"] != 6 {
			t.Errorf("Expected AAPL=6, got %v", positive["AAPL"])
		}
	})

	t.Run("does not mutate the input", func(t *testing.T) {
		holdings := map[string]float64{"X": 0}
		_ = ledger.PositiveOnly(holdings)
		if _, ok := holdings["X"]; !ok {
			t.Error("PositiveOnly mutated its input")
		}
	})
}

// TestSweeper tests the incremental ascending sweep against full replays.
//
// WHY: The orchestrator uses the sweeper for large ranges; its snapshots must
// match what a naive per-date Reconstruct would produce for every date.
func TestSweeper(t *testing.T) {
	log := []model.Transaction{
		tx("AAPL", model.TransactionBuy, 10, "2024-01-01"),
		tx("MSFT", model.TransactionBuy, 4, "2024-01-03"),
		tx("AAPL", model.TransactionSell, 4, "2024-02-01"),
		tx("MSFT", model.TransactionSell, 4, "2024-02-10"),
		tx("NVDA", model.TransactionBuy, 2, "2024-02-10"),
	}

	t.Run("matches full replay on every date", func(t *testing.T) {
		sweeper := ledger.NewSweeper(log)
		for _, day := range dates.Range(mustDate("2023-12-30"), mustDate("2024-02-15")) {
			incremental := sweeper.Advance(day)
			full := ledger.Reconstruct(log, day)
			if len(incremental) != len(full) {
				t.Fatalf("%s: symbol count mismatch: %d vs %d", dates.Key(day), len(incremental), len(full))
			}
			for symbol, qty := range full {
				if incremental[symbol] != qty {
					t.Errorf("%s %s: sweeper=%v replay=%v", dates.Key(day), symbol, incremental[symbol], qty)
				}
			}
		}
	})

	t.Run("snapshots are independent copies", func(t *testing.T) {
		sweeper := ledger.NewSweeper(log)
		first := sweeper.Advance(mustDate("2024-01-02"))
		first["AAPL"] = -999
		second := sweeper.Advance(mustDate("2024-01-02"))
		if second["AAPL"] != 10 {
			t.Errorf("Snapshot mutation leaked into sweeper state: %v", second["AAPL"])
		}
	})
}

func mustDate(s string) time.Time {
	d, err := dates.Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}
