// Package inmemdb implements the core repositories in memory, for tests and database-less development.
package inmemdb

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/college"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/payment"
	"github.com/trezcool/campus/core/user"
)

type (
	DB struct {
		txMu sync.Mutex   // held by a running transaction and by writes outside transactions
		mu   sync.RWMutex // guards tables

		college *table
		user    *table
		fee     *table
		payment *table
	}

	// table keeps rows by ID along with their insertion order.
	table struct {
		rows  map[string]interface{}
		order []string
	}

	// txExecutor marks repository calls made from within InTx. It never runs SQL.
	txExecutor struct {
		core.DBExecutor
	}
)

func newTable() *table {
	return &table{rows: make(map[string]interface{})}
}

func (t *table) insert(id string, row interface{}) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
}

// all returns the rows in insertion order.
func (t *table) all() []interface{} {
	rows := make([]interface{}, 0, len(t.order))
	for _, id := range t.order {
		rows = append(rows, t.rows[id])
	}
	return rows
}

func (t *table) clone() *table {
	c := &table{
		rows:  make(map[string]interface{}, len(t.rows)),
		order: make([]string, len(t.order)),
	}
	for id, row := range t.rows {
		c.rows[id] = row
	}
	copy(c.order, t.order)
	return c
}

func Open() *DB {
	return &DB{
		college: newTable(),
		user:    newTable(),
		fee:     newTable(),
		payment: newTable(),
	}
}

// Reset drops every row.
func (db *DB) Reset() {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	db.mu.Lock()
	defer db.mu.Unlock()

	db.college = newTable()
	db.user = newTable()
	db.fee = newTable()
	db.payment = newTable()
}

func inTx(exec []core.DBExecutor) bool {
	if len(exec) == 0 {
		return false
	}
	_, ok := exec[0].(txExecutor)
	return ok
}

// write runs fn with the tables locked for writing.
// Outside a transaction, it also waits for the running transaction (if any) to end.
func (db *DB) write(exec []core.DBExecutor, fn func() error) error {
	if !inTx(exec) {
		db.txMu.Lock()
		defer db.txMu.Unlock()
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn()
}

func (db *DB) read(fn func()) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	fn()
}

type transactor struct {
	db *DB
}

var _ core.Transactor = (*transactor)(nil)

// NewTransactor returns a core.Transactor running one function at a time,
// restoring the tables as they were before fn when fn fails.
func NewTransactor(db *DB) core.Transactor {
	return &transactor{db: db}
}

func (t *transactor) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return core.NewStorageError(err, "beginning transaction")
	}

	t.db.mu.RLock()
	snapshot := [4]*table{t.db.college.clone(), t.db.user.clone(), t.db.fee.clone(), t.db.payment.clone()}
	t.db.mu.RUnlock()

	if err := fn(txExecutor{}); err != nil {
		t.db.mu.Lock()
		t.db.college, t.db.user, t.db.fee, t.db.payment = snapshot[0], snapshot[1], snapshot[2], snapshot[3]
		t.db.mu.Unlock()
		return err
	}
	return nil
}

// Repositories

type Repositories struct {
	College college.Repository
	User    user.Repository
	Fee     fee.Repository
	Payment payment.Repository
}

func NewRepositories(db *DB) Repositories {
	return Repositories{
		College: &collegeRepository{db: db},
		User:    &userRepository{db: db},
		Fee:     &feeRepository{db: db},
		Payment: &paymentRepository{db: db},
	}
}

// ordering helpers

// less reports whether a sorts before b given the ordering,
// compare(field) returning <0, 0 or >0 as a's field is lower, equal or greater than b's.
func less(ordering []core.DBOrdering, compare func(field string) int) bool {
	for _, ord := range ordering {
		c := compare(ord.Field)
		if c == 0 {
			continue
		}
		if ord.Ascending {
			return c < 0
		}
		return c > 0
	}
	return false
}

func compareStrings(a, b string) int {
	return strings.Compare(a, b)
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// compareTimePtrs sorts nil values last, as PostgreSQL does with NULLs in ascending order.
func compareTimePtrs(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return compareTimes(*a, *b)
}

func compareDecimals(a, b decimal.Decimal) int {
	return a.Cmp(b)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
