package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := New(filepath.Join(t.TempDir(), "positions.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := d.Init(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestUpsertAndLoadPositions(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	rec := PositionRecord{
		ID:              "p1",
		InstrumentKey:   "NSE|OPTION|NIFTY_22150_CE",
		Quantity:        100,
		InitialQuantity: 100,
		Side:            "BUY",
		EntryPrice:      110.75,
		EntryTimestamp:  1705300000000,
		StopLoss:        99.675,
		TakeProfit:      132.9,
		Strategy:        "ORB_L",
		Status:          StatusOpen,
	}
	query, args := UpsertPositionOp(rec)
	if _, err := d.DB.Exec(query, args...); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// A partial close rewrites the same row.
	rec.Quantity = 50
	rec.RealizedPnL = 500
	rec.StopLoss = 110.75
	query, args = UpsertPositionOp(rec)
	if _, err := d.DB.Exec(query, args...); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := d.GetPosition(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Quantity != 50 || got.RealizedPnL != 500 || got.Status != StatusOpen {
		t.Fatalf("unexpected row after partial close: %+v", got)
	}
	if got.InitialQuantity != 100 {
		t.Fatalf("initial quantity must not change, got %d", got.InitialQuantity)
	}

	loaded, err := d.LoadPositions(ctx, time.Now())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "p1" {
		t.Fatalf("expected the open row regardless of session cutoff, got %+v", loaded)
	}
}

func TestLoadPositionsFiltersOldClosedRows(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	sessionStart := time.Now().Add(-time.Hour)

	old := PositionRecord{
		ID: "old", InstrumentKey: "X", Quantity: 0, InitialQuantity: 25, Side: "BUY",
		EntryPrice: 100, EntryTimestamp: sessionStart.Add(-24 * time.Hour).UnixMilli(),
		Status: StatusClosed,
	}
	today := PositionRecord{
		ID: "today", InstrumentKey: "Y", Quantity: 0, InitialQuantity: 25, Side: "BUY",
		EntryPrice: 100, EntryTimestamp: sessionStart.Add(time.Minute).UnixMilli(),
		Status: StatusClosed,
	}
	for _, rec := range []PositionRecord{old, today} {
		query, args := UpsertPositionOp(rec)
		if _, err := d.DB.Exec(query, args...); err != nil {
			t.Fatalf("insert %s: %v", rec.ID, err)
		}
	}

	loaded, err := d.LoadPositions(ctx, sessionStart)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "today" {
		t.Fatalf("expected only today's closed row, got %+v", loaded)
	}
}
