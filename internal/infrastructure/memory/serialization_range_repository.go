package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/NotSleepp/possbien-sub001/internal/domain"
	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
	"github.com/NotSleepp/possbien-sub001/internal/domain/repository"
)

// RangeRepo implementa repository.SerializationRangeRepository. Con t == nil cada llamada
// corre en su propia transacción.
type RangeRepo struct {
	s *Store
	t *tx
}

var _ repository.SerializationRangeRepository = (*RangeRepo)(nil)

// AllocateNext toma el escritor del rango, comprueba el límite e incrementa numero_actual.
func (r *RangeRepo) AllocateNext(ctx context.Context, key repository.RangeKey, series string) (entity.Allocation, error) {
	var out entity.Allocation
	err := r.s.run(ctx, r.t, func(t *tx) error {
		row, err := t.findLocked(ctx, key, series)
		if err != nil {
			return err
		}
		cur := t.writes[row]
		if cur.Exhausted() {
			return domain.ErrSeriesExhausted
		}
		out = entity.Allocation{RangeID: cur.ID, Series: cur.Series, Number: cur.CurrentNumber}
		cur.CurrentNumber++
		cur.UpdatedAt = now()
		t.writes[row] = cur
		return nil
	})
	return out, err
}

// findLocked busca el rango (por serie o el de por defecto) y lo bloquea. Si entre la búsqueda
// y el bloqueo otra transacción cambió la serie por defecto, busca de nuevo.
func (t *tx) findLocked(ctx context.Context, key repository.RangeKey, series string) (*rangeRow, error) {
	for attempt := 0; attempt < 3; attempt++ {
		row := t.match(key, series)
		if row == nil {
			break
		}
		if err := t.lock(ctx, row); err != nil {
			return nil, err
		}
		if matches(t.writes[row], series) {
			return row, nil
		}
	}
	if series == "" {
		return nil, domain.ErrNoDefaultSeriesConfigured
	}
	return nil, domain.ErrRangeNotFound
}

func (t *tx) match(key repository.RangeKey, series string) *rangeRow {
	for _, row := range t.rowsFor(key) {
		if matches(t.view(row), series) {
			return row
		}
	}
	return nil
}

func matches(r entity.SerializationRange, series string) bool {
	if series == "" {
		return r.IsDefault
	}
	return r.Series == series
}

// SetDefault bloquea todos los rangos del par en orden de ID y deja como por defecto solo la serie dada.
func (r *RangeRepo) SetDefault(ctx context.Context, key repository.RangeKey, series string) error {
	return r.s.run(ctx, r.t, func(t *tx) error {
		rows := t.rowsFor(key)
		found := false
		for _, row := range rows {
			if err := t.lock(ctx, row); err != nil {
				return err
			}
			if t.writes[row].Series == series {
				found = true
			}
		}
		if !found {
			return domain.ErrRangeNotFound
		}
		ts := now()
		for _, row := range rows {
			w := t.writes[row]
			isDefault := w.Series == series
			if w.IsDefault != isDefault {
				w.IsDefault = isDefault
				w.UpdatedAt = ts
				t.writes[row] = w
			}
		}
		return nil
	})
}

// Create inserta el rango; si es por defecto desmarca el anterior en la misma transacción.
func (r *RangeRepo) Create(ctx context.Context, rng *entity.SerializationRange) error {
	return r.s.run(ctx, r.t, func(t *tx) error {
		key := keyOf(*rng)
		rows := t.rowsFor(key)
		for _, row := range rows {
			if t.view(row).Series == rng.Series {
				return domain.ErrDuplicateSeries
			}
		}
		if rng.IsDefault {
			for _, row := range rows {
				if err := t.lock(ctx, row); err != nil {
					return err
				}
				if w := t.writes[row]; w.IsDefault {
					w.IsDefault = false
					w.UpdatedAt = now()
					t.writes[row] = w
				}
			}
		}
		c := *cloneRange(*rng)
		row := newRangeRow(c)
		t.inserts = append(t.inserts, row)
		t.writes[row] = c
		return nil
	})
}

// UpdateEndNumber rechaza un número final por debajo de numero_actual.
func (r *RangeRepo) UpdateEndNumber(ctx context.Context, companyID, id string, end *int64) (*entity.SerializationRange, error) {
	var out *entity.SerializationRange
	err := r.s.run(ctx, r.t, func(t *tx) error {
		row := t.byID(companyID, id)
		if row == nil {
			return domain.ErrRangeNotFound
		}
		if err := t.lock(ctx, row); err != nil {
			return err
		}
		w := t.writes[row]
		if end != nil && *end < w.CurrentNumber {
			return fmt.Errorf("%w: numero final %d menor que numero actual %d", domain.ErrInvalidRange, *end, w.CurrentNumber)
		}
		w.EndNumber = copyInt64(end)
		w.UpdatedAt = now()
		t.writes[row] = w
		out = cloneRange(w)
		return nil
	})
	return out, err
}

// GetByID nil, nil si no existe.
func (r *RangeRepo) GetByID(ctx context.Context, companyID, id string) (*entity.SerializationRange, error) {
	t := r.reader()
	row := t.byID(companyID, id)
	if row == nil {
		return nil, nil
	}
	v := t.view(row)
	return cloneRange(v), nil
}

// GetBySeries nil, nil si no existe.
func (r *RangeRepo) GetBySeries(ctx context.Context, key repository.RangeKey, series string) (*entity.SerializationRange, error) {
	t := r.reader()
	for _, row := range t.rowsFor(key) {
		if v := t.view(row); v.Series == series {
			return cloneRange(v), nil
		}
	}
	return nil, nil
}

// ListByBranch rangos de la sucursal ordenados por tipo de comprobante y serie.
func (r *RangeRepo) ListByBranch(ctx context.Context, companyID, branchID string) ([]*entity.SerializationRange, error) {
	t := r.reader()
	r.s.mu.RLock()
	var rows []*rangeRow
	for _, row := range r.s.ranges {
		if row.data.CompanyID == companyID && row.data.BranchID == branchID {
			rows = append(rows, row)
		}
	}
	r.s.mu.RUnlock()
	for _, row := range t.inserts {
		if w := t.writes[row]; w.CompanyID == companyID && w.BranchID == branchID {
			rows = append(rows, row)
		}
	}
	out := make([]*entity.SerializationRange, 0, len(rows))
	for _, row := range rows {
		out = append(out, cloneRange(t.view(row)))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentTypeID != out[j].DocumentTypeID {
			return out[i].DocumentTypeID < out[j].DocumentTypeID
		}
		return out[i].Series < out[j].Series
	})
	return out, nil
}

// reader transacción para lecturas: la propia o una vacía que solo ve datos confirmados.
func (r *RangeRepo) reader() *tx {
	if r.t != nil {
		return r.t
	}
	return r.s.begin()
}

func cloneRange(r entity.SerializationRange) *entity.SerializationRange {
	r.EndNumber = copyInt64(r.EndNumber)
	return &r
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
