package persistence

import (
	"database/sql"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"scalp-core/internal/ledger"
	"scalp-core/internal/monitor"
	"scalp-core/pkg/db"
)

// writeOp is one buffered row write.
type writeOp struct {
	query string
	args  []any
}

// Journal persists position lifecycle changes without blocking the per-bar
// path: writes are buffered and flushed in batched transactions by a
// background goroutine. It implements ledger.Store.
type Journal struct {
	db          *sql.DB
	metrics     *monitor.SystemMetrics
	buffer      []writeOp
	mu          sync.Mutex
	maxSize     int
	flushIntval time.Duration
	done        chan struct{}
	wg          sync.WaitGroup

	totalWrites  uint64
	totalBatches uint64
	totalErrors  uint64
}

// NewJournal starts the journal. maxSize is the buffered-operation count
// that forces a flush; interval is the time-based flush period. metrics may
// be nil.
func NewJournal(database *db.Database, metrics *monitor.SystemMetrics, maxSize int, interval time.Duration) *Journal {
	if maxSize <= 0 {
		maxSize = 50
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	j := &Journal{
		db:          database.DB,
		metrics:     metrics,
		buffer:      make([]writeOp, 0, maxSize),
		maxSize:     maxSize,
		flushIntval: interval,
		done:        make(chan struct{}),
	}

	j.wg.Add(1)
	go j.backgroundFlush()

	return j
}

// PositionOpened journals a new open row.
func (j *Journal) PositionOpened(p ledger.Position) {
	j.write(recordFor(p, db.StatusOpen))
}

// PositionUpdated journals a partial close or stop/target migration.
func (j *Journal) PositionUpdated(p ledger.Position) {
	j.write(recordFor(p, db.StatusOpen))
}

// PositionClosed journals the final row state.
func (j *Journal) PositionClosed(p ledger.Position) {
	j.write(recordFor(p, db.StatusClosed))
}

func recordFor(p ledger.Position, status string) db.PositionRecord {
	return db.PositionRecord{
		ID:              p.ID,
		InstrumentKey:   p.Instrument,
		Quantity:        p.Quantity,
		InitialQuantity: p.InitialQuantity,
		Side:            p.Side.String(),
		EntryPrice:      p.EntryPrice,
		EntryTimestamp:  p.EntryTime,
		StopLoss:        p.StopLoss,
		TakeProfit:      p.TakeProfit,
		ExitPrice:       p.ExitPrice,
		ExitTimestamp:   p.ExitTime,
		RealizedPnL:     p.RealizedPnL,
		ExitReason:      p.ExitReason,
		Strategy:        p.Strategy,
		Status:          status,
	}
}

// RestoreInto replays persisted rows into the ledger at startup.
func RestoreInto(led *ledger.Ledger, records []db.PositionRecord) {
	for _, r := range records {
		p := ledger.Position{
			ID:              r.ID,
			Instrument:      r.InstrumentKey,
			Quantity:        r.Quantity,
			InitialQuantity: r.InitialQuantity,
			Side:            ledger.SideFromString(r.Side),
			EntryPrice:      r.EntryPrice,
			EntryTime:       r.EntryTimestamp,
			StopLoss:        r.StopLoss,
			TakeProfit:      r.TakeProfit,
			ExitPrice:       r.ExitPrice,
			ExitTime:        r.ExitTimestamp,
			RealizedPnL:     r.RealizedPnL,
			ExitReason:      r.ExitReason,
			Strategy:        r.Strategy,
		}
		if r.Status == db.StatusOpen {
			led.Restore(p)
		} else {
			led.RestoreClosed(p)
		}
	}
	if len(records) > 0 {
		log.Printf("restored %d position rows from store", len(records))
	}
}

func (j *Journal) write(rec db.PositionRecord) {
	query, args := db.UpsertPositionOp(rec)

	j.mu.Lock()
	j.buffer = append(j.buffer, writeOp{query: query, args: args})
	shouldFlush := len(j.buffer) >= j.maxSize
	j.mu.Unlock()

	if shouldFlush {
		j.Flush()
	}
}

// Flush writes all buffered operations in one transaction.
func (j *Journal) Flush() error {
	j.mu.Lock()
	if len(j.buffer) == 0 {
		j.mu.Unlock()
		return nil
	}
	ops := j.buffer
	j.buffer = make([]writeOp, 0, j.maxSize)
	j.mu.Unlock()

	return j.executeBatch(ops)
}

func (j *Journal) executeBatch(ops []writeOp) error {
	atomic.AddUint64(&j.totalWrites, uint64(len(ops)))
	atomic.AddUint64(&j.totalBatches, 1)

	start := time.Now()

	tx, err := j.db.Begin()
	if err != nil {
		atomic.AddUint64(&j.totalErrors, 1)
		log.Printf("journal: begin transaction failed: %v", err)
		return err
	}

	for _, op := range ops {
		if _, err := tx.Exec(op.query, op.args...); err != nil {
			tx.Rollback()
			atomic.AddUint64(&j.totalErrors, 1)
			log.Printf("journal: write failed, rolling back: %v", err)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		atomic.AddUint64(&j.totalErrors, 1)
		log.Printf("journal: commit failed: %v", err)
		return err
	}

	if j.metrics != nil {
		j.metrics.DBLatency.RecordDuration(time.Since(start))
	}
	return nil
}

func (j *Journal) backgroundFlush() {
	defer j.wg.Done()
	ticker := time.NewTicker(j.flushIntval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := j.Flush(); err != nil {
				log.Printf("journal: background flush error: %v", err)
			}
		case <-j.done:
			if err := j.Flush(); err != nil {
				log.Printf("journal: final flush error: %v", err)
			}
			return
		}
	}
}

// Pending returns the buffered operation count.
func (j *Journal) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.buffer)
}

// Close flushes remaining writes and stops the background goroutine.
func (j *Journal) Close() error {
	close(j.done)
	j.wg.Wait()
	return nil
}
