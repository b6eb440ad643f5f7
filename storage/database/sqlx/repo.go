// Package sqlxrepos implements the core repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/campus/core"
)

const uniqueViolation = "unique_violation"

func getExec(db core.DBExecutor, exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 && exec[0] != nil {
		return exec[0]
	}
	return db
}

// named binds the :name params of query from arg (struct with db tags or map) into postgres $n params.
func named(query string, arg interface{}) (string, []interface{}, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(sqlx.DOLLAR, q), args, nil
}

// selectRows runs query and scans every returned row into dest, a pointer to a slice of db-tagged structs.
func selectRows(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	return sqlx.StructScan(rows, dest)
}

// namedSelect is selectRows over a named query.
func namedSelect(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, arg interface{}) error {
	q, args, err := named(query, arg)
	if err != nil {
		return err
	}
	return selectRows(ctx, exec, dest, q, args...)
}

// uniqueConstraint returns the name of the unique constraint err violates, if any.
func uniqueConstraint(err error) (string, bool) {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// where accumulates AND-ed conditions and their named args.
type where struct {
	conds []string
	args  map[string]interface{}
}

func newWhere() *where {
	return &where{args: make(map[string]interface{})}
}

// add appends cond, whose :name param takes val.
func (w *where) add(cond, name string, val interface{}) {
	w.conds = append(w.conds, cond)
	w.args[name] = val
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func orderBy(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	return " ORDER BY " + core.OrderByClause(ordering)
}
