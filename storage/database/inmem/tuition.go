package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/jardin/core/tuition"
)

type tuitionRepository struct {
	db *tuitionTable
}

var _ tuition.Repository = (*tuitionRepository)(nil) // interface compliance check

func NewTuitionRepository(db *DB) *tuitionRepository {
	return &tuitionRepository{db: db.tuition}
}

func (repo *tuitionRepository) getCuota(courseID int, period tuition.Period) (*tuition.Cuota, bool) {
	for _, c := range repo.db.cuotas {
		if c.CourseID == courseID && c.Period() == period {
			return c, true
		}
	}
	return nil, false
}

func (repo *tuitionRepository) GetCuota(_ context.Context, courseID int, period tuition.Period) (tuition.Cuota, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.getCuota(courseID, period); ok {
		return *c, nil
	}
	return tuition.Cuota{}, tuition.ErrCuotaNotFound
}

func (repo *tuitionRepository) CreateCuota(_ context.Context, cuota tuition.Cuota) (tuition.Cuota, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.getCuota(cuota.CourseID, cuota.Period()); ok {
		return tuition.Cuota{}, tuition.ErrCuotaExists
	}
	repo.db.pk++
	cuota.ID = repo.db.pk
	repo.db.cuotas[cuota.ID] = &cuota
	return cuota, nil
}

func (repo *tuitionRepository) QueryCuotas(_ context.Context, filter tuition.CuotaFilter) ([]tuition.Cuota, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cuotas := make([]tuition.Cuota, 0)
	for _, c := range repo.db.cuotas {
		if filter.Match(*c) {
			cuotas = append(cuotas, *c)
		}
	}
	sort.Slice(cuotas, func(i, j int) bool {
		if pi, pj := cuotas[i].Period().Index(), cuotas[j].Period().Index(); pi != pj {
			return pi < pj
		}
		return cuotas[i].CourseID < cuotas[j].CourseID
	})
	return cuotas, nil
}

func (repo *tuitionRepository) CreatePayment(_ context.Context, pmt tuition.Payment) (tuition.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, p := range repo.db.payments {
		if p.CuotaID == pmt.CuotaID && p.StudentID == pmt.StudentID {
			return tuition.Payment{}, tuition.ErrAlreadyPaid
		}
	}
	repo.db.pk++
	pmt.ID = repo.db.pk
	repo.db.payments[pmt.ID] = &pmt
	return pmt, nil
}

func (repo *tuitionRepository) QueryPayments(_ context.Context, filter tuition.PaymentFilter) ([]tuition.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	payments := make([]tuition.Payment, 0)
	for _, p := range repo.db.payments {
		if filter.Match(*p) {
			payments = append(payments, *p)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].PaidAt.Equal(payments[j].PaidAt) {
			return payments[i].PaidAt.Before(payments[j].PaidAt)
		}
		return payments[i].ID < payments[j].ID
	})
	return payments, nil
}
