package tuition

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestDueDate(t *testing.T) {
	tests := []struct {
		name    string
		dueDay  int
		month   int
		year    int
		want    time.Time
		wantErr error
	}{
		{name: "plain", dueDay: 15, month: 3, year: 2023, want: time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "31 in non-leap february", dueDay: 31, month: 2, year: 2023, want: time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)},
		{name: "30 in leap february", dueDay: 30, month: 2, year: 2024, want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{name: "31 in april", dueDay: 31, month: 4, year: 2024, want: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)},
		{name: "default due day", dueDay: 0, month: 7, year: 2024, want: time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)},
		{name: "month 0", dueDay: 10, month: 0, year: 2024, wantErr: ErrInvalidMonth},
		{name: "month 13", dueDay: 10, month: 13, year: 2024, wantErr: ErrInvalidMonth},
		{name: "negative due day", dueDay: -1, month: 1, year: 2024, wantErr: ErrInvalidDueDay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DueDate(tt.dueDay, tt.month, tt.year, time.UTC)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "DueDate() = %v, want %v", got, tt.want)
		})
	}
}

func TestDueDate_alwaysInTargetMonth(t *testing.T) {
	for _, year := range []int{2023, 2024, 2100, 2000} {
		for month := 1; month <= 12; month++ {
			for day := 1; day <= 28; day++ {
				got, err := DueDate(day, month, year, time.UTC)
				require.NoError(t, err)
				if int(got.Month()) != month || got.Year() != year || got.Day() != day {
					t.Fatalf("DueDate(%d, %d, %d) = %v", day, month, year, got)
				}
			}
		}
	}
}

func TestDueDate_location(t *testing.T) {
	loc := mustLoad(t, "America/Argentina/Buenos_Aires")
	got, err := DueDate(10, 3, 2024, loc)
	require.NoError(t, err)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, 10, got.Day())
}

func TestClassify(t *testing.T) {
	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		paidAt time.Time
		cutoff Cutoff
		want   Classification
	}{
		{name: "days before", paidAt: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), want: Classification{Status: StatusOnTime}},
		{name: "exactly at due", paidAt: due, want: Classification{Status: StatusOnTime}},
		{name: "a second after due", paidAt: due.Add(time.Second), want: Classification{Status: StatusLate, DaysLate: 1}},
		{name: "one full day after", paidAt: due.Add(24 * time.Hour), want: Classification{Status: StatusLate, DaysLate: 1}},
		{name: "march 15", paidAt: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), want: Classification{Status: StatusLate, DaysLate: 5}},
		{name: "march 15 afternoon", paidAt: time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC), want: Classification{Status: StatusLate, DaysLate: 6}},
		{name: "end of day: due date afternoon", paidAt: time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC), cutoff: CutoffEndOfDay, want: Classification{Status: StatusOnTime}},
		{name: "end of day: next morning", paidAt: time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC), cutoff: CutoffEndOfDay, want: Classification{Status: StatusLate, DaysLate: 1}},
		{name: "end of day: march 15", paidAt: time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC), cutoff: CutoffEndOfDay, want: Classification{Status: StatusLate, DaysLate: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cutoff := tt.cutoff
			if cutoff == "" {
				cutoff = CutoffStartOfDay
			}
			got := Classify(due, tt.paidAt, cutoff)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Classify(due, tt.paidAt, cutoff), "classification must be stable")
		})
	}
}

func TestClassify_otherLocation(t *testing.T) {
	loc := time.FixedZone("ART", -3*3600)
	due := time.Date(2024, 3, 10, 0, 0, 0, 0, loc)

	// 02:00 UTC on the 10th is still the 9th in ART
	got := Classify(due, time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC), CutoffStartOfDay)
	assert.Equal(t, Classification{Status: StatusOnTime}, got)

	got = Classify(due, time.Date(2024, 3, 11, 4, 0, 0, 0, time.UTC), CutoffEndOfDay)
	assert.Equal(t, Classification{Status: StatusLate, DaysLate: 1}, got)
}

func TestClassify_dst(t *testing.T) {
	loc := mustLoad(t, "America/New_York")
	// DST starts on 2024-03-10, that day only has 23 hours
	due := time.Date(2024, 3, 9, 0, 0, 0, 0, loc)

	got := Classify(due, time.Date(2024, 3, 12, 0, 0, 0, 0, loc), CutoffStartOfDay)
	assert.Equal(t, Classification{Status: StatusLate, DaysLate: 3}, got)

	got = Classify(due, time.Date(2024, 3, 11, 23, 30, 0, 0, loc), CutoffStartOfDay)
	assert.Equal(t, Classification{Status: StatusLate, DaysLate: 3}, got)
}

func TestParseCutoff(t *testing.T) {
	c, err := ParseCutoff("")
	require.NoError(t, err)
	assert.Equal(t, CutoffStartOfDay, c)

	c, err = ParseCutoff("end_of_day")
	require.NoError(t, err)
	assert.Equal(t, CutoffEndOfDay, c)

	_, err = ParseCutoff("noon")
	assert.Equal(t, ErrInvalidCutoff, errors.Cause(err))
}
