package inmemdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jardin/core/attendance"
	"github.com/trezcool/jardin/core/tuition"
)

func TestTuitionRepository_CreateCuota_concurrent(t *testing.T) {
	repo := NewTuitionRepository(Open())
	ctx := context.Background()
	cuota := tuition.Cuota{CourseID: 1, Month: 3, Year: 2024, Amount: decimal.NewFromInt(1500)}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.CreateCuota(ctx, cuota); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			} else {
				assert.Equal(t, tuition.ErrCuotaExists, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)

	got, err := repo.GetCuota(ctx, 1, tuition.Period{Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(cuota.Amount))

	_, err = repo.GetCuota(ctx, 1, tuition.Period{Year: 2024, Month: 4})
	assert.Equal(t, tuition.ErrCuotaNotFound, err)
}

func TestTuitionRepository_CreatePayment(t *testing.T) {
	repo := NewTuitionRepository(Open())
	ctx := context.Background()
	pmt := tuition.Payment{CuotaID: 1, CourseID: 1, StudentID: 2, Month: 3, Year: 2024, PaidAt: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)}

	saved, err := repo.CreatePayment(ctx, pmt)
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	_, err = repo.CreatePayment(ctx, pmt)
	assert.Equal(t, tuition.ErrAlreadyPaid, err)

	pmt.StudentID = 3
	pmt.PaidAt = pmt.PaidAt.AddDate(0, 0, -1)
	_, err = repo.CreatePayment(ctx, pmt)
	require.NoError(t, err)

	payments, err := repo.QueryPayments(ctx, tuition.PaymentFilter{})
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, 3, payments[0].StudentID, "sorted by payment date")
}

func TestAttendanceRepository_SaveRecords(t *testing.T) {
	repo := NewAttendanceRepository(Open())
	ctx := context.Background()
	day := time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC)

	first, err := repo.SaveRecords(ctx, []attendance.Record{
		{CourseID: 1, StudentID: 2, Date: day, Present: false},
		{CourseID: 1, StudentID: 3, Date: day, Present: true},
	})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.True(t, first[0].Date.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)))

	// same (course, student, date) overwrites
	second, err := repo.SaveRecords(ctx, []attendance.Record{{CourseID: 1, StudentID: 2, Date: day, Present: true}})
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, second[0].ID)

	recs, err := repo.QueryRecords(ctx, attendance.RecordFilter{PersonID: 2})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Present)
}

func TestAttendanceRepository_settings(t *testing.T) {
	repo := NewAttendanceRepository(Open())
	ctx := context.Background()

	got, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, attendance.DefaultSettings, got)

	_, err = repo.SaveSettings(ctx, attendance.Settings{RegistrationEnabled: false})
	require.NoError(t, err)
	got, err = repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.False(t, got.RegistrationEnabled)
}

func TestAttendanceRepository_notices(t *testing.T) {
	repo := NewAttendanceRepository(Open())
	ctx := context.Background()
	created := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)

	late, err := repo.CreateNotice(ctx, attendance.PrincipalNotice{CourseID: 1, TeacherID: 7, Date: created, Kind: attendance.NoticeCheckOut, CreatedAt: created.Add(time.Hour)})
	require.NoError(t, err)
	early, err := repo.CreateNotice(ctx, attendance.PrincipalNotice{CourseID: 1, TeacherID: 7, Date: created, Kind: attendance.NoticeCheckIn, CreatedAt: created})
	require.NoError(t, err)
	assert.True(t, early.Date.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, repo.MarkNoticeProcessed(ctx, early.ID))
	assert.Equal(t, attendance.ErrNoticeProcessed, repo.MarkNoticeProcessed(ctx, early.ID))
	assert.Equal(t, attendance.ErrNoticeNotFound, repo.MarkNoticeProcessed(ctx, 999))

	pending, err := repo.QueryNotices(ctx, true)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, late.ID, pending[0].ID)

	all, err := repo.QueryNotices(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, early.ID, all[0].ID, "oldest first")

	got, err := repo.GetNotice(ctx, early.ID)
	require.NoError(t, err)
	assert.True(t, got.Processed)
	_, err = repo.GetNotice(ctx, 999)
	assert.Equal(t, attendance.ErrNoticeNotFound, err)
}
