package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/NotSleepp/possbien-sub001/internal/application/auth"
	"github.com/NotSleepp/possbien-sub001/internal/application/dto"
	"github.com/NotSleepp/possbien-sub001/internal/application/sales"
	"github.com/NotSleepp/possbien-sub001/internal/application/serialization"
	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
	"github.com/NotSleepp/possbien-sub001/internal/domain/pricing"
	"github.com/NotSleepp/possbien-sub001/internal/infrastructure/cache"
	"github.com/NotSleepp/possbien-sub001/internal/infrastructure/memory"
	apphttp "github.com/NotSleepp/possbien-sub001/internal/interfaces/http"
)

// memIdempotency almacén de llaves en memoria para tests.
type memIdempotency struct {
	mu      sync.Mutex
	entries map[string][]byte // nil = en curso
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{entries: make(map[string][]byte)}
}

func (m *memIdempotency) Claim(_ context.Context, key string, _ time.Duration) (cache.IdempotencyState, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.entries[key]
	switch {
	case !ok:
		m.entries[key] = nil
		return cache.IdempotencyNew, nil, nil
	case payload == nil:
		return cache.IdempotencyPending, nil, nil
	default:
		return cache.IdempotencyDone, payload, nil
	}
}

func (m *memIdempotency) Complete(_ context.Context, key string, payload []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = payload
	return nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

type apiFixture struct {
	app   *fiber.App
	store *memory.Store
	idem  *memIdempotency
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("4321"), bcrypt.MinCost)
	require.NoError(t, err)
	store.AddUser(&entity.User{ID: "u-super", CompanyID: testCompanyID, Email: "supervisora@tienda.co", Role: entity.RoleSupervisor, Status: "active", AuthCodeHash: string(hash)})

	registry := serialization.NewRegistry(store.Ranges(), nil, nil)
	authorizer := sales.NewDiscountAuthorizer(auth.NewSupervisorVerifier(store.Users()), sales.DefaultMaxUnauthorizedDiscount)
	finalizer := sales.NewSaleFinalizer(store, registry, pricing.NewEngine(pricing.DefaultTaxRate), authorizer, store.Sales(), nil, nil, "COP")

	idem := newMemIdempotency()
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Finalizer:   finalizer,
		Registry:    registry,
		Idempotency: idem,
		JWTSecret:   testJWTSecret,
	})
	return &apiFixture{app: app, store: store, idem: idem}
}

func (fx *apiFixture) do(t *testing.T, method, path, role string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := fx.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func (fx *apiFixture) createSeries(t *testing.T, serie string, current int64, isDefault bool) {
	t.Helper()
	resp, body := fx.do(t, http.MethodPost, "/api/serializaciones", "admin", dto.CreateSerializationRequest{
		BranchID:    "suc-1", DocumentTypeID: "BOLETA", Series: serie,
		StartNumber: 1, CurrentNumber: &current, IsDefault: isDefault,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
}

func saleBody(payments ...map[string]any) map[string]any {
	return map[string]any{
		"idSucursal":        "suc-1",
		"idTipoComprobante": "BOLETA",
		"lineas": []map[string]any{
			{"idProducto": "p-1", "descripcion": "Café 500g", "precioUnitario": 10000, "cantidad": 2},
		},
		"pagos": payments,
	}
}

func TestAPI_Health(t *testing.T) {
	fx := newAPI(t)
	resp, body := fx.do(t, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAPI_CerrarVenta(t *testing.T) {
	fx := newAPI(t)
	fx.createSeries(t, "B001", 42, true)

	resp, body := fx.do(t, http.MethodPost, "/api/ventas", "cajero",
		saleBody(map[string]any{"metodo": "efectivo", "recibido": 30000}), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	assert.Equal(t, "B001", body["serie"])
	assert.Equal(t, float64(42), body["numeroActual"])
	assert.Equal(t, "B001-00000042", body["numeroComprobante"])
	assert.Equal(t, float64(23800), body["total"])
	assert.Equal(t, float64(6200), body["vuelto"])
	assert.Equal(t, testUserID, body["idCajero"])

	id, _ := body["id"].(string)
	resp, got := fx.do(t, http.MethodGet, "/api/ventas/"+id, "cajero", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, got["id"])

	resp, list := fx.do(t, http.MethodGet, "/api/ventas?idSucursal=suc-1", "cajero", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list["items"], 1)
}

func TestAPI_ErroresDeDominio(t *testing.T) {
	fx := newAPI(t)

	resp, body := fx.do(t, http.MethodPost, "/api/ventas", "cajero",
		saleBody(map[string]any{"metodo": "EFECTIVO", "recibido": 30000}), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "SIN_SERIE_POR_DEFECTO", body["codigo"])
	assert.Nil(t, body["reintentable"])

	fx.createSeries(t, "B001", 1, true)

	resp, body = fx.do(t, http.MethodPost, "/api/ventas", "cajero",
		saleBody(map[string]any{"metodo": "EFECTIVO", "recibido": 20000}), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "EFECTIVO_INSUFICIENTE", body["codigo"])

	b := saleBody(map[string]any{"metodo": "TARJETA", "monto": 20230})
	b["descuento"] = map[string]any{"tipo": "PORCENTAJE", "valor": 15}
	resp, body = fx.do(t, http.MethodPost, "/api/ventas", "cajero", b, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "AUTORIZACION_REQUERIDA", body["codigo"])

	b["autorizacion"] = map[string]any{"supervisor": "supervisora@tienda.co", "codigo": "4321"}
	resp, body = fx.do(t, http.MethodPost, "/api/ventas", "cajero", b, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "u-super", body["autorizadoPor"])
	assert.Equal(t, float64(1), body["numeroActual"], "los rechazos previos no consumen número")

	resp, body = fx.do(t, http.MethodGet, "/api/ventas/no-existe", "cajero", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["codigo"])
}

func TestAPI_SerieAgotada(t *testing.T) {
	fx := newAPI(t)
	end := int64(2) // emite solo el 1
	resp, _ := fx.do(t, http.MethodPost, "/api/serializaciones", "admin", dto.CreateSerializationRequest{
		BranchID: "suc-1", DocumentTypeID: "BOLETA", Series: "B009", StartNumber: 1, EndNumber: &end, IsDefault: true,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	pay := map[string]any{"metodo": "EFECTIVO", "recibido": 30000}
	resp, _ = fx.do(t, http.MethodPost, "/api/ventas", "cajero", saleBody(pay), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := fx.do(t, http.MethodPost, "/api/ventas", "cajero", saleBody(pay), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "SERIE_AGOTADA", body["codigo"])
}

func TestAPI_Idempotencia(t *testing.T) {
	fx := newAPI(t)
	fx.createSeries(t, "B001", 10, true)
	headers := map[string]string{apphttp.HeaderIdempotencyKey: "pos-7-ticket-1"}
	body := saleBody(map[string]any{"metodo": "EFECTIVO", "recibido": 30000})

	resp, first := fx.do(t, http.MethodPost, "/api/ventas", "cajero", body, headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(apphttp.HeaderReplayed))

	resp, second := fx.do(t, http.MethodPost, "/api/ventas", "cajero", body, headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(apphttp.HeaderReplayed))
	assert.Equal(t, first["id"], second["id"])
	assert.Equal(t, float64(10), second["numeroActual"])

	_, list := fx.do(t, http.MethodGet, "/api/ventas", "cajero", nil, nil)
	assert.Len(t, list["items"], 1, "el reintento no crea otra venta")
}

func TestAPI_IdempotenciaLiberaLlaveAnteError(t *testing.T) {
	fx := newAPI(t)
	headers := map[string]string{apphttp.HeaderIdempotencyKey: "pos-7-ticket-2"}
	body := saleBody(map[string]any{"metodo": "EFECTIVO", "recibido": 30000})

	resp, _ := fx.do(t, http.MethodPost, "/api/ventas", "cajero", body, headers)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	fx.createSeries(t, "B001", 1, true)
	resp, _ = fx.do(t, http.MethodPost, "/api/ventas", "cajero", body, headers)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "tras corregir la configuración se puede reintentar")
}

func TestAPI_IdempotenciaEnCurso(t *testing.T) {
	fx := newAPI(t)
	fx.createSeries(t, "B001", 1, true)
	fx.idem.entries[testCompanyID+":pos-7-ticket-3"] = nil

	resp, body := fx.do(t, http.MethodPost, "/api/ventas", "cajero",
		saleBody(map[string]any{"metodo": "EFECTIVO", "recibido": 30000}),
		map[string]string{apphttp.HeaderIdempotencyKey: "pos-7-ticket-3"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "SOLICITUD_EN_CURSO", body["codigo"])
}

func TestAPI_Serializaciones(t *testing.T) {
	fx := newAPI(t)
	fx.createSeries(t, "B001", 1, true)

	resp, body := fx.do(t, http.MethodPost, "/api/serializaciones", "cajero", dto.CreateSerializationRequest{
		BranchID: "suc-1", DocumentTypeID: "BOLETA", Series: "B002", StartNumber: 1,
	}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "solo admin configura series")

	resp, body = fx.do(t, http.MethodPost, "/api/serializaciones", "admin", dto.CreateSerializationRequest{
		BranchID: "suc-1", DocumentTypeID: "BOLETA", Series: "b001", StartNumber: 1,
	}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "SERIE_DUPLICADA", body["codigo"])

	start := int64(5)
	resp, body = fx.do(t, http.MethodPost, "/api/serializaciones", "admin", dto.CreateSerializationRequest{
		BranchID: "suc-1", DocumentTypeID: "BOLETA", Series: "B003", StartNumber: 10, CurrentNumber: &start,
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "RANGO_INVALIDO", body["codigo"])

	fx.createSeries(t, "B002", 500, false)
	resp, _ = fx.do(t, http.MethodPut, "/api/serializaciones/default", "admin", dto.SetDefaultSerializationRequest{
		BranchID: "suc-1", DocumentTypeID: "BOLETA", Series: "B002",
	}, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = fx.do(t, http.MethodPost, "/api/ventas", "cajero",
		saleBody(map[string]any{"metodo": "EFECTIVO", "recibido": 30000}), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "B002", body["serie"])
	assert.Equal(t, float64(500), body["numeroActual"])

	resp, list := fx.do(t, http.MethodGet, "/api/serializaciones?idSucursal=suc-1", "cajero", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items, _ := list["items"].([]any)
	require.Len(t, items, 2)

	resp, body = fx.do(t, http.MethodGet, "/api/serializaciones?idSucursal=", "cajero", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", body["codigo"])

	resp, body = fx.do(t, http.MethodGet, "/api/serializaciones/no-existe", "cajero", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "RANGO_NO_ENCONTRADO", body["codigo"])
}

func TestAPI_SinToken(t *testing.T) {
	fx := newAPI(t)
	resp, _ := fx.do(t, http.MethodGet, "/api/ventas", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

