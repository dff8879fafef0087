package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/NotSleepp/possbien-sub001/internal/domain"
	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
	"github.com/NotSleepp/possbien-sub001/internal/domain/repository"
)

var _ repository.SerializationRangeRepository = (*SerializationRangeRepo)(nil)

// SerializationRangeRepo implementa SerializationRangeRepository sobre PostgreSQL.
type SerializationRangeRepo struct {
	q Querier
}

// NewSerializationRangeRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSerializationRangeRepository(q Querier) *SerializationRangeRepo {
	return &SerializationRangeRepo{q: q}
}

const rangeColumns = `id, company_id, branch_id, document_type_id, serie, numero_inicial,
	numero_actual, numero_final, is_default, created_at, updated_at`

// AllocateNext incrementa numero_actual con un único UPDATE condicional: leer y reservar ocurren
// en la misma sentencia, así que dos cajas nunca obtienen el mismo número. La fila queda
// bloqueada hasta el commit o rollback de la transacción del llamador.
func (r *SerializationRangeRepo) AllocateNext(ctx context.Context, key repository.RangeKey, series string) (entity.Allocation, error) {
	const q = `
		UPDATE serialization_ranges
		SET numero_actual = numero_actual + 1, updated_at = now()
		WHERE company_id = $1 AND branch_id = $2 AND document_type_id = $3
		  AND (($4::text = '' AND is_default) OR serie = $4::text)
		  AND (numero_final IS NULL OR numero_actual < numero_final)
		RETURNING id, serie, numero_actual - 1`
	var a entity.Allocation
	err := r.q.QueryRow(ctx, q, key.CompanyID, key.BranchID, key.DocumentTypeID, series).
		Scan(&a.RangeID, &a.Series, &a.Number)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return entity.Allocation{}, fmt.Errorf("allocate serialization number: %w", err)
	}
	return entity.Allocation{}, r.allocationMiss(ctx, key, series)
}

// allocationMiss explica por qué el UPDATE no afectó filas: sin rango o rango agotado.
func (r *SerializationRangeRepo) allocationMiss(ctx context.Context, key repository.RangeKey, series string) error {
	const q = `
		SELECT numero_actual, numero_final FROM serialization_ranges
		WHERE company_id = $1 AND branch_id = $2 AND document_type_id = $3
		  AND (($4::text = '' AND is_default) OR serie = $4::text)`
	var current int64
	var end *int64
	err := r.q.QueryRow(ctx, q, key.CompanyID, key.BranchID, key.DocumentTypeID, series).Scan(&current, &end)
	if errors.Is(err, pgx.ErrNoRows) {
		if series == "" {
			return domain.ErrNoDefaultSeriesConfigured
		}
		return domain.ErrRangeNotFound
	}
	if err != nil {
		return fmt.Errorf("classify allocation miss: %w", err)
	}
	if end != nil && current >= *end {
		return domain.ErrSeriesExhausted
	}
	// La serie por defecto cambió entre el UPDATE y esta lectura: el llamador puede reintentar.
	return fmt.Errorf("allocate serialization number: rango modificado concurrentemente")
}

// SetDefault bloquea las filas del par, desmarca la serie anterior y marca la nueva.
// Son dos sentencias porque el índice único parcial sobre is_default se valida fila a fila.
func (r *SerializationRangeRepo) SetDefault(ctx context.Context, key repository.RangeKey, series string) error {
	tx, err := r.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin set default: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	const lock = `
		SELECT serie FROM serialization_ranges
		WHERE company_id = $1 AND branch_id = $2 AND document_type_id = $3
		ORDER BY id
		FOR UPDATE`
	rows, err := tx.Query(ctx, lock, key.CompanyID, key.BranchID, key.DocumentTypeID)
	if err != nil {
		return fmt.Errorf("lock serialization_ranges: %w", err)
	}
	found := false
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			rows.Close()
			return fmt.Errorf("scan serie: %w", err)
		}
		if s == series {
			found = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock serialization_ranges: %w", err)
	}
	if !found {
		return domain.ErrRangeNotFound
	}

	const clear = `
		UPDATE serialization_ranges SET is_default = false, updated_at = now()
		WHERE company_id = $1 AND branch_id = $2 AND document_type_id = $3
		  AND is_default AND serie <> $4`
	if _, err := tx.Exec(ctx, clear, key.CompanyID, key.BranchID, key.DocumentTypeID, series); err != nil {
		return fmt.Errorf("clear default serie: %w", err)
	}
	const mark = `
		UPDATE serialization_ranges SET is_default = true, updated_at = now()
		WHERE company_id = $1 AND branch_id = $2 AND document_type_id = $3
		  AND serie = $4 AND NOT is_default`
	if _, err := tx.Exec(ctx, mark, key.CompanyID, key.BranchID, key.DocumentTypeID, series); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("mark default serie: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit set default: %w", err)
	}
	return nil
}

// Create inserta el rango. Si llega por defecto, desmarca el anterior en la misma transacción.
func (r *SerializationRangeRepo) Create(ctx context.Context, rng *entity.SerializationRange) error {
	tx, err := r.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create range: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if rng.IsDefault {
		const clear = `
			UPDATE serialization_ranges SET is_default = false, updated_at = now()
			WHERE company_id = $1 AND branch_id = $2 AND document_type_id = $3 AND is_default`
		if _, err := tx.Exec(ctx, clear, rng.CompanyID, rng.BranchID, rng.DocumentTypeID); err != nil {
			return fmt.Errorf("clear default serie: %w", err)
		}
	}
	const q = `
		INSERT INTO serialization_ranges
			(id, company_id, branch_id, document_type_id, serie, numero_inicial,
			 numero_actual, numero_final, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = tx.Exec(ctx, q,
		rng.ID, rng.CompanyID, rng.BranchID, rng.DocumentTypeID, rng.Series, rng.StartNumber,
		rng.CurrentNumber, rng.EndNumber, rng.IsDefault, rng.CreatedAt, rng.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if constraintName(err) == "ux_serialization_ranges_default" {
				return domain.ErrConflict
			}
			return domain.ErrDuplicateSeries
		}
		return fmt.Errorf("insert serialization_range: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create range: %w", err)
	}
	return nil
}

// UpdateEndNumber cambia numero_final solo si no queda por debajo de numero_actual.
func (r *SerializationRangeRepo) UpdateEndNumber(ctx context.Context, companyID, id string, end *int64) (*entity.SerializationRange, error) {
	q := `
		UPDATE serialization_ranges SET numero_final = $3, updated_at = now()
		WHERE company_id = $1 AND id = $2
		  AND ($3::bigint IS NULL OR numero_actual <= $3::bigint)
		RETURNING ` + rangeColumns
	rng, err := scanRange(r.q.QueryRow(ctx, q, companyID, id, end))
	if err == nil {
		return rng, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update numero_final: %w", err)
	}
	existing, err := r.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.ErrRangeNotFound
	}
	return nil, fmt.Errorf("%w: numero final %d menor que numero actual %d", domain.ErrInvalidRange, *end, existing.CurrentNumber)
}

func (r *SerializationRangeRepo) GetByID(ctx context.Context, companyID, id string) (*entity.SerializationRange, error) {
	q := `SELECT ` + rangeColumns + ` FROM serialization_ranges WHERE company_id = $1 AND id = $2`
	rng, err := scanRange(r.q.QueryRow(ctx, q, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get serialization_range by id: %w", err)
	}
	return rng, nil
}

func (r *SerializationRangeRepo) GetBySeries(ctx context.Context, key repository.RangeKey, series string) (*entity.SerializationRange, error) {
	q := `SELECT ` + rangeColumns + ` FROM serialization_ranges
		WHERE company_id = $1 AND branch_id = $2 AND document_type_id = $3 AND serie = $4`
	rng, err := scanRange(r.q.QueryRow(ctx, q, key.CompanyID, key.BranchID, key.DocumentTypeID, series))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get serialization_range by serie: %w", err)
	}
	return rng, nil
}

func (r *SerializationRangeRepo) ListByBranch(ctx context.Context, companyID, branchID string) ([]*entity.SerializationRange, error) {
	q := `SELECT ` + rangeColumns + ` FROM serialization_ranges
		WHERE company_id = $1 AND branch_id = $2
		ORDER BY document_type_id, serie`
	rows, err := r.q.Query(ctx, q, companyID, branchID)
	if err != nil {
		return nil, fmt.Errorf("list serialization_ranges: %w", err)
	}
	defer rows.Close()

	var list []*entity.SerializationRange
	for rows.Next() {
		rng, err := scanRange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan serialization_range: %w", err)
		}
		list = append(list, rng)
	}
	return list, rows.Err()
}

func scanRange(row pgx.Row) (*entity.SerializationRange, error) {
	var r entity.SerializationRange
	err := row.Scan(
		&r.ID, &r.CompanyID, &r.BranchID, &r.DocumentTypeID, &r.Series, &r.StartNumber,
		&r.CurrentNumber, &r.EndNumber, &r.IsDefault, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
