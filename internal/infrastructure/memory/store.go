// Package memory implementa los repositorios en memoria para desarrollo local y tests.
// Emula las garantías de la base de datos: cada rango tiene un escritor exclusivo hasta
// commit o rollback, y las lecturas solo ven datos confirmados.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NotSleepp/possbien-sub001/internal/domain"
	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
	"github.com/NotSleepp/possbien-sub001/internal/domain/repository"
)

type rangeRow struct {
	sem  chan struct{}             // lock de escritura; se libera al terminar la transacción
	data entity.SerializationRange // versión confirmada, protegida por Store.mu
}

func newRangeRow(r entity.SerializationRange) *rangeRow {
	return &rangeRow{sem: make(chan struct{}, 1), data: r}
}

type saleKey struct {
	companyID      string
	branchID       string
	documentTypeID string
	series         string
	number         int64
}

// Store almacén en memoria con semántica transaccional.
type Store struct {
	mu        sync.RWMutex
	ranges    map[string]*rangeRow
	sales     map[string]*entity.Sale
	saleIndex map[saleKey]string
	users     map[string]*entity.User
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		ranges:    make(map[string]*rangeRow),
		sales:     make(map[string]*entity.Sale),
		saleIndex: make(map[saleKey]string),
		users:     make(map[string]*entity.User),
	}
}

// Ranges repositorio de rangos fuera de transacción (cada operación confirma por sí sola).
func (s *Store) Ranges() *RangeRepo { return &RangeRepo{s: s} }

// Sales repositorio de ventas fuera de transacción.
func (s *Store) Sales() *SaleRepo { return &SaleRepo{s: s} }

// Users repositorio de usuarios.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// RunSale ejecuta fn con repositorios atados a una transacción.
func (s *Store) RunSale(ctx context.Context, fn func(
	rangeRepo repository.SerializationRangeRepository,
	saleRepo repository.SaleRepository,
) error) error {
	t := s.begin()
	defer t.rollback()
	if err := fn(&RangeRepo{s: s, t: t}, &SaleRepo{s: s, t: t}); err != nil {
		return err
	}
	return t.commit(ctx)
}

// AddUser registra o reemplaza un usuario.
func (s *Store) AddUser(u *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

// ─── Transacción ──────────────────────────────────────────────────────────────

type tx struct {
	s       *Store
	held    map[*rangeRow]bool
	order   []*rangeRow
	writes  map[*rangeRow]entity.SerializationRange
	inserts []*rangeRow
	sales   []*entity.Sale
	done    bool
}

func (s *Store) begin() *tx {
	return &tx{
		s:      s,
		held:   make(map[*rangeRow]bool),
		writes: make(map[*rangeRow]entity.SerializationRange),
	}
}

// run ejecuta fn en t o, sin transacción, en una propia que confirma al terminar.
func (s *Store) run(ctx context.Context, t *tx, fn func(t *tx) error) error {
	if t != nil {
		return fn(t)
	}
	own := s.begin()
	defer own.rollback()
	if err := fn(own); err != nil {
		return err
	}
	return own.commit(ctx)
}

func (t *tx) isInsert(row *rangeRow) bool {
	for _, r := range t.inserts {
		if r == row {
			return true
		}
	}
	return false
}

// lock toma el escritor exclusivo del rango respetando la cancelación del contexto.
func (t *tx) lock(ctx context.Context, row *rangeRow) error {
	if t.held[row] || t.isInsert(row) {
		return nil
	}
	select {
	case row.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	t.held[row] = true
	t.order = append(t.order, row)
	t.s.mu.RLock()
	t.writes[row] = row.data
	t.s.mu.RUnlock()
	return nil
}

// view devuelve la versión visible para la transacción.
func (t *tx) view(row *rangeRow) entity.SerializationRange {
	if w, ok := t.writes[row]; ok {
		return w
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return row.data
}

// rowsFor rangos del par ordenados por ID (orden fijo de bloqueo), incluidos los insertados en t.
func (t *tx) rowsFor(key repository.RangeKey) []*rangeRow {
	t.s.mu.RLock()
	var rows []*rangeRow
	for _, row := range t.s.ranges {
		if sameKey(row.data, key) {
			rows = append(rows, row)
		}
	}
	t.s.mu.RUnlock()
	for _, row := range t.inserts {
		if sameKey(t.writes[row], key) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return t.view(rows[i]).ID < t.view(rows[j]).ID })
	return rows
}

func (t *tx) byID(companyID, id string) *rangeRow {
	for _, row := range t.inserts {
		if w := t.writes[row]; w.ID == id && w.CompanyID == companyID {
			return row
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	row, ok := t.s.ranges[id]
	if !ok || row.data.CompanyID != companyID {
		return nil
	}
	return row
}

func (t *tx) commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s := t.s
	s.mu.Lock()
	if err := t.checkConstraints(); err != nil {
		s.mu.Unlock()
		return err
	}
	for row, w := range t.writes {
		row.data = w
	}
	for _, row := range t.inserts {
		s.ranges[row.data.ID] = row
	}
	for _, sale := range t.sales {
		s.sales[sale.ID] = sale
		s.saleIndex[keyOfSale(sale)] = sale.ID
	}
	s.mu.Unlock()
	t.release()
	return nil
}

// checkConstraints emula los índices únicos. Se llama con s.mu tomado.
func (t *tx) checkConstraints() error {
	touched := make(map[repository.RangeKey]bool)
	for _, row := range t.inserts {
		w := t.writes[row]
		for _, other := range t.s.ranges {
			if sameKey(other.data, keyOf(w)) && other.data.Series == w.Series {
				return domain.ErrDuplicateSeries
			}
		}
		touched[keyOf(w)] = true
	}
	for row := range t.writes {
		touched[keyOf(t.writes[row])] = true
	}
	for key := range touched {
		defaults := 0
		for _, row := range t.s.ranges {
			if !sameKey(row.data, key) {
				continue
			}
			v := row.data
			if w, ok := t.writes[row]; ok {
				v = w
			}
			if v.IsDefault {
				defaults++
			}
		}
		for _, row := range t.inserts {
			if w := t.writes[row]; sameKey(w, key) && w.IsDefault {
				defaults++
			}
		}
		if defaults > 1 {
			return domain.ErrConflict
		}
	}
	for _, sale := range t.sales {
		if _, ok := t.s.sales[sale.ID]; ok {
			return domain.ErrConflict
		}
		if _, ok := t.s.saleIndex[keyOfSale(sale)]; ok {
			return domain.ErrConflict
		}
	}
	return nil
}

func (t *tx) rollback() {
	if t.done {
		return
	}
	t.release()
}

func (t *tx) release() {
	t.done = true
	for _, row := range t.order {
		<-row.sem
	}
	t.order = nil
	t.held = nil
}

func sameKey(r entity.SerializationRange, key repository.RangeKey) bool {
	return r.CompanyID == key.CompanyID && r.BranchID == key.BranchID && r.DocumentTypeID == key.DocumentTypeID
}

func keyOf(r entity.SerializationRange) repository.RangeKey {
	return repository.RangeKey{CompanyID: r.CompanyID, BranchID: r.BranchID, DocumentTypeID: r.DocumentTypeID}
}

func keyOfSale(s *entity.Sale) saleKey {
	return saleKey{s.CompanyID, s.BranchID, s.DocumentTypeID, s.Series, s.Number}
}

func now() time.Time { return time.Now().UTC() }
