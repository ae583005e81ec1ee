package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

func main() {
	dbPath := "./data/scalp.db"
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}
	fmt.Printf("Verifying database at: %s\n", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	// 1. Verify positions table
	fmt.Println("\n1. Verifying positions table...")
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name='positions'")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	if rows.Next() {
		fmt.Println("✓ positions table exists")
	} else {
		fmt.Println("✗ positions table MISSING")
	}
	rows.Close()

	// 2. Verify required columns
	fmt.Println("\n2. Verifying positions columns...")
	var sqlSchema string
	err = db.QueryRow("SELECT sql FROM sqlite_master WHERE type='table' AND name='positions'").Scan(&sqlSchema)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	for _, col := range []string{
		"instrument_key", "quantity", "initial_quantity", "side",
		"entry_price", "entry_timestamp", "stop_loss", "take_profit",
		"exit_price", "exit_timestamp", "realized_pnl", "exit_reason",
		"strategy", "status",
	} {
		if strings.Contains(sqlSchema, col) {
			fmt.Printf("✓ column %s present\n", col)
		} else {
			fmt.Printf("✗ column %s MISSING\n", col)
		}
	}

	// 3. Verify indexes
	fmt.Println("\n3. Verifying indexes...")
	for _, idx := range []string{"idx_positions_status", "idx_positions_entry_ts"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name = ?", idx).Scan(&name)
		switch {
		case err == sql.ErrNoRows:
			fmt.Printf("✗ index %s MISSING\n", idx)
		case err != nil:
			log.Fatalf("Query failed: %v", err)
		default:
			fmt.Printf("✓ index %s exists\n", idx)
		}
	}

	// 4. Row counts by status
	fmt.Println("\n4. Row counts...")
	for _, status := range []string{"OPEN", "CLOSED"} {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM positions WHERE status = ?", status).Scan(&count); err != nil {
			log.Fatalf("Count query failed: %v", err)
		}
		fmt.Printf("  %s: %d\n", status, count)
	}
}
