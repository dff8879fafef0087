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

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo implementa SaleRepository sobre PostgreSQL.
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

const saleColumns = `id, company_id, branch_id, document_type_id, serie, numero, cashier_id,
	customer_document, customer_name, customer_email,
	gross_subtotal, subtotal, discount_amount, tax_rate, tax_amount, total, change_amount,
	discount_reason, authorized_by, authorized_at, status, created_at`

// Create guarda cabecera, líneas y pagos. Las líneas y pagos viajan en un solo batch.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	tx, err := r.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create sale: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	var doc, name, email *string
	if s.Customer != nil {
		doc, name, email = nullString(s.Customer.DocumentNumber), nullString(s.Customer.Name), nullString(s.Customer.Email)
	}
	const qSale = `
		INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`
	_, err = tx.Exec(ctx, qSale,
		s.ID, s.CompanyID, s.BranchID, s.DocumentTypeID, s.Series, s.Number, s.CashierID,
		doc, name, email,
		s.GrossSubtotal, s.Subtotal, s.DiscountAmount, s.TaxRate, s.TaxAmount, s.Total, s.Change,
		nullString(s.DiscountReason), nullString(s.AuthorizedBy), s.AuthorizedAt, s.Status, s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: comprobante %s-%d ya registrado", domain.ErrConflict, s.Series, s.Number)
		}
		return fmt.Errorf("insert sale: %w", err)
	}

	batch := &pgx.Batch{}
	const qLine = `
		INSERT INTO sale_lines
			(id, sale_id, position, product_id, description, unit_price, quantity, discount_amount, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, l := range s.Lines {
		batch.Queue(qLine, l.ID, s.ID, l.Position, l.ProductID, l.Description, l.UnitPrice, l.Quantity, l.DiscountAmount, l.LineTotal)
	}
	const qPay = `
		INSERT INTO sale_payments
			(id, sale_id, position, method, amount, received, change_amount, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, p := range s.Payments {
		batch.Queue(qPay, p.ID, s.ID, p.Position, string(p.Method), p.Amount, p.Received, p.Change, nullString(p.Reference))
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert sale detail: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create sale: %w", err)
	}
	return nil
}

// GetByID devuelve la venta con líneas y pagos; nil, nil si no existe.
func (r *SaleRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Sale, error) {
	q := `SELECT ` + saleColumns + ` FROM sales WHERE company_id = $1 AND id = $2`
	sale, err := scanSale(r.q.QueryRow(ctx, q, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale by id: %w", err)
	}
	if sale.Lines, err = r.lines(ctx, sale.ID); err != nil {
		return nil, err
	}
	if sale.Payments, err = r.payments(ctx, sale.ID); err != nil {
		return nil, err
	}
	return sale, nil
}

// ListByBranch cabeceras de ventas (sin líneas ni pagos), más recientes primero.
func (r *SaleRepo) ListByBranch(ctx context.Context, companyID, branchID string, limit, offset int) ([]*entity.Sale, error) {
	q := `SELECT ` + saleColumns + ` FROM sales
		WHERE company_id = $1 AND ($2::text = '' OR branch_id = $2::text)
		ORDER BY created_at DESC, numero DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, q, companyID, branchID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	list := []*entity.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		list = append(list, sale)
	}
	return list, rows.Err()
}

func (r *SaleRepo) lines(ctx context.Context, saleID string) ([]entity.SaleLine, error) {
	const q = `
		SELECT id, sale_id, position, product_id, description, unit_price, quantity, discount_amount, line_total
		FROM sale_lines WHERE sale_id = $1 ORDER BY position`
	rows, err := r.q.Query(ctx, q, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale_lines: %w", err)
	}
	defer rows.Close()

	var out []entity.SaleLine
	for rows.Next() {
		var l entity.SaleLine
		if err := rows.Scan(&l.ID, &l.SaleID, &l.Position, &l.ProductID, &l.Description,
			&l.UnitPrice, &l.Quantity, &l.DiscountAmount, &l.LineTotal); err != nil {
			return nil, fmt.Errorf("scan sale_line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *SaleRepo) payments(ctx context.Context, saleID string) ([]entity.SalePayment, error) {
	const q = `
		SELECT id, sale_id, position, method, amount, received, change_amount, reference
		FROM sale_payments WHERE sale_id = $1 ORDER BY position`
	rows, err := r.q.Query(ctx, q, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale_payments: %w", err)
	}
	defer rows.Close()

	var out []entity.SalePayment
	for rows.Next() {
		var p entity.SalePayment
		var method string
		var ref *string
		if err := rows.Scan(&p.ID, &p.SaleID, &p.Position, &method, &p.Amount, &p.Received, &p.Change, &ref); err != nil {
			return nil, fmt.Errorf("scan sale_payment: %w", err)
		}
		p.Method = entity.PaymentMethod(method)
		p.Reference = derefString(ref)
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanSale(row pgx.Row) (*entity.Sale, error) {
	var s entity.Sale
	var doc, name, email, reason, authorizedBy *string
	err := row.Scan(
		&s.ID, &s.CompanyID, &s.BranchID, &s.DocumentTypeID, &s.Series, &s.Number, &s.CashierID,
		&doc, &name, &email,
		&s.GrossSubtotal, &s.Subtotal, &s.DiscountAmount, &s.TaxRate, &s.TaxAmount, &s.Total, &s.Change,
		&reason, &authorizedBy, &s.AuthorizedAt, &s.Status, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if doc != nil || name != nil || email != nil {
		s.Customer = &entity.CustomerInfo{DocumentNumber: derefString(doc), Name: derefString(name), Email: derefString(email)}
	}
	s.DiscountReason = derefString(reason)
	s.AuthorizedBy = derefString(authorizedBy)
	return &s, nil
}
