// Package payment concilia los pagos entregados contra el total de la venta.
package payment

import (
	"fmt"

	"github.com/NotSleepp/possbien-sub001/internal/domain"
	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
)

// Result desglose conciliado. Payments conserva el orden de entrada con el monto aplicado.
type Result struct {
	Payments     []entity.Payment
	Change       int64 // vuelto total en efectivo
	CashTotal    int64
	NonCashTotal int64
}

// Reconcile valida los pagos en el orden enviado contra total.
//
//   - Cada pago debe aplicar un monto positivo.
//   - Ningún pago puede llevar la suma por encima del total, salvo efectivo cuyo recibido
//     supera lo pendiente: el excedente es vuelto y no se aplica a pagos siguientes.
//   - Al terminar, lo pendiente debe ser exactamente 0.
//
// En efectivo Amount es opcional. Si lo recibido supera lo pendiente se aplica lo pendiente y
// el resto es vuelto; si no, se aplica todo lo recibido (un Amount menor sería vuelto a mitad
// del pago y se rechaza).
// Tarjeta y transferencia se registran por su valor nominal, sin Received ni Change.
// No hay confirmación parcial: ante cualquier error no se devuelve desglose.
func Reconcile(total int64, payments []entity.Payment) (Result, error) {
	if total < 0 {
		return Result{}, fmt.Errorf("%w: total negativo", domain.ErrInvalidPayment)
	}
	if len(payments) == 0 {
		if total == 0 {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("%w: se requiere al menos un pago", domain.ErrInvalidPayment)
	}

	res := Result{Payments: make([]entity.Payment, 0, len(payments))}
	var paid int64
	for i, p := range payments {
		remaining := total - paid
		var applied entity.Payment
		var err error
		switch p.Method {
		case entity.PaymentCash:
			applied, err = applyCash(p, remaining)
		case entity.PaymentCard, entity.PaymentTransfer:
			applied, err = applyNonCash(p, remaining)
		default:
			err = fmt.Errorf("%w: medio de pago %q no soportado", domain.ErrInvalidPayment, p.Method)
		}
		if err != nil {
			return Result{}, fmt.Errorf("pago %d: %w", i+1, err)
		}
		paid += applied.Amount
		res.Change += applied.Change
		if applied.Method == entity.PaymentCash {
			res.CashTotal += applied.Amount
		} else {
			res.NonCashTotal += applied.Amount
		}
		res.Payments = append(res.Payments, applied)
	}

	if remaining := total - paid; remaining > 0 {
		if payments[len(payments)-1].Method == entity.PaymentCash {
			return Result{}, fmt.Errorf("%w: faltan %d", domain.ErrInsufficientCashReceived, remaining)
		}
		return Result{}, fmt.Errorf("%w: faltan %d", domain.ErrPaymentsDoNotCoverTotal, remaining)
	}
	return res, nil
}

func applyCash(p entity.Payment, remaining int64) (entity.Payment, error) {
	if p.Amount < 0 || p.Received < 0 {
		return entity.Payment{}, fmt.Errorf("%w: monto negativo", domain.ErrInvalidPayment)
	}
	received := p.Received
	if received == 0 {
		received = p.Amount
	}
	if received == 0 {
		return entity.Payment{}, fmt.Errorf("%w: efectivo sin monto recibido", domain.ErrInvalidPayment)
	}
	if p.Amount > received {
		return entity.Payment{}, fmt.Errorf("%w: monto %d mayor que lo recibido %d", domain.ErrInvalidPayment, p.Amount, received)
	}
	if remaining <= 0 {
		return entity.Payment{}, domain.ErrOverpaymentNotAllowedExceptFinalCash
	}

	if received > remaining {
		// cierra el saldo: el excedente es vuelto, sin importar Amount
		return entity.Payment{
			Method:    entity.PaymentCash,
			Amount:    remaining,
			Received:  received,
			Change:    received - remaining,
			Reference: p.Reference,
		}, nil
	}
	if p.Amount > 0 && p.Amount < received {
		return entity.Payment{}, fmt.Errorf("%w: monto %d menor que lo recibido %d sin cerrar el saldo",
			domain.ErrInvalidPayment, p.Amount, received)
	}
	return entity.Payment{
		Method:    entity.PaymentCash,
		Amount:    received,
		Received:  received,
		Reference: p.Reference,
	}, nil
}

func applyNonCash(p entity.Payment, remaining int64) (entity.Payment, error) {
	if p.Amount <= 0 {
		return entity.Payment{}, fmt.Errorf("%w: el monto debe ser mayor que cero", domain.ErrInvalidPayment)
	}
	if p.Amount > remaining {
		return entity.Payment{}, fmt.Errorf("%w: %s por %d con pendiente %d",
			domain.ErrOverpaymentNotAllowedExceptFinalCash, p.Method, p.Amount, remaining)
	}
	return entity.Payment{Method: p.Method, Amount: p.Amount, Reference: p.Reference}, nil
}
