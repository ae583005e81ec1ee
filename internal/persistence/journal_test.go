package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"scalp-core/internal/ledger"
	"scalp-core/pkg/cache"
	"scalp-core/pkg/db"
)

func TestJournalPersistsLifecycle(t *testing.T) {
	database, err := db.New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()
	if err := database.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	j := NewJournal(database, nil, 50, time.Hour)
	led := ledger.New(cache.NewShardedPriceCache(), j)

	inst := "NSE|OPTION|NIFTY_22150_CE"
	led.Add(inst, 100, ledger.SideLong, 110.75, 1705300000000, 99.675, 132.9, "ORB_L")
	led.PartialClose(inst, 50, 132.9, 1705300300000, "PARTIAL_TP")
	led.Close(inst, 110.75, 1705300600000, "HARD_SL_HIT")

	if err := j.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	j.Close()

	rows, err := database.LoadPositions(context.Background(), time.UnixMilli(1705300000000))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row for the full lifecycle, got %d", len(rows))
	}
	row := rows[0]
	if row.Status != db.StatusClosed || row.Quantity != 0 {
		t.Fatalf("final row should be closed with zero quantity: %+v", row)
	}
	if row.InitialQuantity != 100 || row.Strategy != "ORB_L" {
		t.Fatalf("row lost entry fields: %+v", row)
	}
	// 50 lots out at +22.15, 50 lots out at 0.
	if want := 50 * (132.9 - 110.75); row.RealizedPnL < want-1e-6 || row.RealizedPnL > want+1e-6 {
		t.Fatalf("expected realized pnl %.2f, got %.2f", want, row.RealizedPnL)
	}
}

func TestRestoreIntoLedger(t *testing.T) {
	led := ledger.New(cache.NewShardedPriceCache(), nil)
	RestoreInto(led, []db.PositionRecord{
		{ID: "a", InstrumentKey: "X", Quantity: 50, InitialQuantity: 100, Side: "BUY",
			EntryPrice: 100, EntryTimestamp: 1, StopLoss: 90, TakeProfit: 120, Status: db.StatusOpen},
		{ID: "b", InstrumentKey: "Y", Quantity: 0, InitialQuantity: 25, Side: "SELL",
			EntryPrice: 200, EntryTimestamp: 2, ExitPrice: 190, ExitTimestamp: 3,
			RealizedPnL: 250, ExitReason: "HARD_TP_HIT", Status: db.StatusClosed},
	})

	open, ok := led.Get("X")
	if !ok || open.Quantity != 50 || open.Side != ledger.SideLong {
		t.Fatalf("open row not restored: %+v ok=%v", open, ok)
	}
	closed := led.ClosedPositions()
	if len(closed) != 1 || closed[0].RealizedPnL != 250 || closed[0].Side != ledger.SideShort {
		t.Fatalf("closed row not restored: %+v", closed)
	}
}
