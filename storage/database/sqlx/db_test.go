package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/schedule"
)

func Test_isUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: uniqueViolation, Constraint: "payments_cuota_student_key"}

	tests := []struct {
		name        string
		err         error
		constraints []string
		want        bool
	}{
		{name: "nil", err: nil},
		{name: "not a pq error", err: errors.New("boom")},
		{name: "other pq error", err: &pq.Error{Code: "23503"}},
		{name: "any constraint", err: dup, want: true},
		{name: "wrapped", err: errors.Wrap(dup, "creating payment"), constraints: []string{"payments_cuota_student_key"}, want: true},
		{name: "other constraint", err: dup, constraints: []string{"cuotas_course_period_key"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err, tt.constraints...))
		})
	}
}

func Test_wrapErr(t *testing.T) {
	assert.NoError(t, wrapErr(nil, "committing roll call"))

	tests := []struct {
		name         string
		err          error
		wantShutdown bool
		wantMsg      string
	}{
		{name: "query error", err: errors.New("syntax error"), wantMsg: "querying cuotas: syntax error"},
		{name: "bad connection", err: driver.ErrBadConn, wantShutdown: true, wantMsg: "querying cuotas: driver: bad connection"},
		{name: "closed connection", err: errors.Wrap(sql.ErrConnDone, "tx"), wantShutdown: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapErr(tt.err, "querying cuotas")
			assert.Equal(t, tt.wantShutdown, core.IsShutdown(err))
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, err.Error())
			}
		})
	}

	notFound := trapNoRowsErr(sql.ErrNoRows, core.NewNotFoundError("cuota not found"), "getting cuota")
	assert.True(t, core.IsNotFound(notFound))
	assert.True(t, core.IsShutdown(trapNoRowsErr(driver.ErrBadConn, notFound, "getting cuota")))
}

func Test_orderBy(t *testing.T) {
	tests := []struct {
		ordering []core.DBOrdering
		want     string
	}{
		{want: ` ORDER BY "id" ASC`},
		{
			ordering: []core.DBOrdering{{Field: "name", Ascending: true}, {Field: "monthly_fee"}},
			want:     ` ORDER BY "name" ASC, "monthly_fee" DESC, "id" ASC`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, orderBy(tt.ordering))
		})
	}
}

func Test_where(t *testing.T) {
	var w where
	assert.Equal(t, "", w.String())

	w.add("course_id = ?", 3)
	w.add("date BETWEEN ? AND ?", "2024-03-01", "2024-03-31")
	assert.Equal(t, " WHERE course_id = ? AND date BETWEEN ? AND ?", w.String())
	assert.Equal(t, []interface{}{3, "2024-03-01", "2024-03-31"}, w.args)
}

func Test_clockColumns(t *testing.T) {
	assert.False(t, clockToNull(nil).Valid)
	assert.Nil(t, nullToClock(clockToNull(nil)))

	c := schedule.NewClock(8, 10)
	got := nullToClock(clockToNull(&c))
	if assert.NotNil(t, got) {
		assert.Equal(t, "08:10", got.String())
	}
}
