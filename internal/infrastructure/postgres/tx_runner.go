package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NotSleepp/possbien-sub001/internal/application/sales"
	"github.com/NotSleepp/possbien-sub001/internal/domain/repository"
)

var _ sales.SalesTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunSale inicia una transacción con los repos de rangos y ventas, y hace Commit o Rollback.
// El UPDATE de numero_actual deja la fila bloqueada hasta el final: otra caja que cierre con la
// misma serie espera y nunca lee el mismo número.
func (r *TxRunner) RunSale(ctx context.Context, fn func(
	rangeRepo repository.SerializationRangeRepository,
	saleRepo repository.SaleRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(NewSerializationRangeRepository(tx), NewSaleRepository(tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
