package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/jardin/core"
)

const uniqueViolation = "23505"

// wrapErr annotates err with msg. A lost database connection becomes a core shutdown error.
func wrapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	switch errors.Cause(err) {
	case driver.ErrBadConn, sql.ErrConnDone:
		return core.NewShutdownError(msg + ": " + err.Error())
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation reports whether err is a postgres unique constraint violation on one of constraints
// (any constraint when none is given).
func isUniqueViolation(err error, constraints ...string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok || pqErr.Code != uniqueViolation {
		return false
	}
	if len(constraints) == 0 {
		return true
	}
	for _, c := range constraints {
		if pqErr.Constraint == c {
			return true
		}
	}
	return false
}

// orderBy renders an ORDER BY clause with quoted identifiers, always ending with id for stable pages.
func orderBy(ordering []core.DBOrdering) string {
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		ord.Field = strmangle.IdentQuote('"', '"', ord.Field)
		orderList = append(orderList, ord.String())
	}
	orderList = append(orderList, `"id" ASC`)
	return " ORDER BY " + strings.Join(orderList, ", ")
}

// where accumulates AND-ed conditions written with ? placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
