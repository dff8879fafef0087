package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotSleepp/possbien-sub001/internal/domain"
	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
	"github.com/NotSleepp/possbien-sub001/internal/domain/repository"
	"github.com/NotSleepp/possbien-sub001/internal/infrastructure/memory"
)

var key = repository.RangeKey{CompanyID: "c-1", BranchID: "suc-1", DocumentTypeID: "BOLETA"}

func newRange(id, series string, current int64, end *int64, isDefault bool) *entity.SerializationRange {
	return &entity.SerializationRange{
		ID:     id, CompanyID: key.CompanyID, BranchID: key.BranchID, DocumentTypeID: key.DocumentTypeID,
		Series: series, StartNumber: 1, CurrentNumber: current, EndNumber: end, IsDefault: isDefault,
	}
}

func ptr(v int64) *int64 { return &v }

func TestRangeRepo_AllocateNextIncrementa(t *testing.T) {
	store := memory.NewStore()
	repo := store.Ranges()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newRange("r1", "B001", 42, nil, true)))

	a, err := repo.AllocateNext(ctx, key, "")
	require.NoError(t, err)
	assert.Equal(t, int64(42), a.Number)
	assert.Equal(t, "B001", a.Series)

	got, err := repo.GetByID(ctx, key.CompanyID, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(43), got.CurrentNumber)
}

func TestRangeRepo_ErroresDeSeleccion(t *testing.T) {
	store := memory.NewStore()
	repo := store.Ranges()
	ctx := context.Background()

	_, err := repo.AllocateNext(ctx, key, "")
	assert.ErrorIs(t, err, domain.ErrNoDefaultSeriesConfigured)

	require.NoError(t, repo.Create(ctx, newRange("r1", "B001", 1, nil, false)))
	_, err = repo.AllocateNext(ctx, key, "")
	assert.ErrorIs(t, err, domain.ErrNoDefaultSeriesConfigured)

	_, err = repo.AllocateNext(ctx, key, "F999")
	assert.ErrorIs(t, err, domain.ErrRangeNotFound)
}

func TestRangeRepo_Agotamiento(t *testing.T) {
	store := memory.NewStore()
	repo := store.Ranges()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newRange("r1", "B001", 999, ptr(1000), true)))

	a, err := repo.AllocateNext(ctx, key, "B001")
	require.NoError(t, err)
	assert.Equal(t, int64(999), a.Number)

	_, err = repo.AllocateNext(ctx, key, "B001")
	assert.ErrorIs(t, err, domain.ErrSeriesExhausted)

	got, _ := repo.GetByID(ctx, key.CompanyID, "r1")
	assert.Equal(t, int64(1000), got.CurrentNumber, "el agotamiento no mueve numero_actual")
}

func TestRangeRepo_AsignacionConcurrenteSinHuecosNiDuplicados(t *testing.T) {
	store := memory.NewStore()
	repo := store.Ranges()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newRange("r1", "B001", 1, nil, true)))

	const n = 200
	var wg sync.WaitGroup
	numbers := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := repo.AllocateNext(ctx, key, "")
			if err == nil {
				numbers <- a.Number
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[int64]bool)
	for num := range numbers {
		assert.False(t, seen[num], "número duplicado %d", num)
		seen[num] = true
	}
	require.Len(t, seen, n)
	for i := int64(1); i <= n; i++ {
		assert.True(t, seen[i], "falta el número %d", i)
	}
}

func TestStore_RollbackLiberaElNumero(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Ranges().Create(ctx, newRange("r1", "B001", 42, nil, true)))

	boom := errors.New("fallo al guardar")
	err := store.RunSale(ctx, func(ranges repository.SerializationRangeRepository, sales repository.SaleRepository) error {
		a, err := ranges.AllocateNext(ctx, key, "")
		require.NoError(t, err)
		assert.Equal(t, int64(42), a.Number)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := store.Ranges().GetByID(ctx, key.CompanyID, "r1")
	assert.Equal(t, int64(42), got.CurrentNumber)
}

func TestStore_CancelacionAntesDelCommit(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Ranges().Create(context.Background(), newRange("r1", "B001", 7, nil, true)))

	ctx, cancel := context.WithCancel(context.Background())
	err := store.RunSale(ctx, func(ranges repository.SerializationRangeRepository, sales repository.SaleRepository) error {
		if _, err := ranges.AllocateNext(ctx, key, ""); err != nil {
			return err
		}
		cancel()
		return sales.Create(ctx, &entity.Sale{ID: "v1", CompanyID: key.CompanyID, Series: "B001", Number: 7})
	})
	assert.ErrorIs(t, err, context.Canceled)

	got, _ := store.Ranges().GetByID(context.Background(), key.CompanyID, "r1")
	assert.Equal(t, int64(7), got.CurrentNumber)
	sale, _ := store.Sales().GetByID(context.Background(), key.CompanyID, "v1")
	assert.Nil(t, sale)
}

func TestStore_LecturaNoVeCambiosSinConfirmar(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Ranges().Create(ctx, newRange("r1", "B001", 10, nil, true)))

	inside := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.RunSale(ctx, func(ranges repository.SerializationRangeRepository, _ repository.SaleRepository) error {
			if _, err := ranges.AllocateNext(ctx, key, ""); err != nil {
				return err
			}
			close(inside)
			<-release
			return nil
		})
	}()

	<-inside
	got, _ := store.Ranges().GetByID(ctx, key.CompanyID, "r1")
	assert.Equal(t, int64(10), got.CurrentNumber)

	// una segunda asignación espera al escritor y respeta su contexto
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := store.Ranges().AllocateNext(waitCtx, key, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)
	got, _ = store.Ranges().GetByID(ctx, key.CompanyID, "r1")
	assert.Equal(t, int64(11), got.CurrentNumber)
}

func TestRangeRepo_SetDefaultDejaUnoSolo(t *testing.T) {
	store := memory.NewStore()
	repo := store.Ranges()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newRange("r1", "B001", 1, nil, true)))
	require.NoError(t, repo.Create(ctx, newRange("r2", "B002", 1, nil, false)))

	require.NoError(t, repo.SetDefault(ctx, key, "B002"))

	list, err := repo.ListByBranch(ctx, key.CompanyID, key.BranchID)
	require.NoError(t, err)
	defaults := 0
	for _, r := range list {
		if r.IsDefault {
			defaults++
			assert.Equal(t, "B002", r.Series)
		}
	}
	assert.Equal(t, 1, defaults)

	a, err := repo.AllocateNext(ctx, key, "")
	require.NoError(t, err)
	assert.Equal(t, "B002", a.Series)

	assert.ErrorIs(t, repo.SetDefault(ctx, key, "B404"), domain.ErrRangeNotFound)
}

func TestRangeRepo_CrearPorDefectoDesmarcaElAnterior(t *testing.T) {
	store := memory.NewStore()
	repo := store.Ranges()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newRange("r1", "B001", 1, nil, true)))
	require.NoError(t, repo.Create(ctx, newRange("r2", "B002", 1, nil, true)))

	r1, _ := repo.GetByID(ctx, key.CompanyID, "r1")
	r2, _ := repo.GetByID(ctx, key.CompanyID, "r2")
	assert.False(t, r1.IsDefault)
	assert.True(t, r2.IsDefault)

	assert.ErrorIs(t, repo.Create(ctx, newRange("r3", "B002", 1, nil, false)), domain.ErrDuplicateSeries)
}

func TestRangeRepo_UpdateEndNumber(t *testing.T) {
	store := memory.NewStore()
	repo := store.Ranges()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newRange("r1", "B001", 50, ptr(60), true)))

	_, err := repo.UpdateEndNumber(ctx, key.CompanyID, "r1", ptr(49))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	got, err := repo.UpdateEndNumber(ctx, key.CompanyID, "r1", ptr(100))
	require.NoError(t, err)
	assert.Equal(t, int64(100), *got.EndNumber)
	assert.Equal(t, int64(50), got.CurrentNumber)

	got, err = repo.UpdateEndNumber(ctx, key.CompanyID, "r1", nil)
	require.NoError(t, err)
	assert.Nil(t, got.EndNumber)

	_, err = repo.UpdateEndNumber(ctx, "otra-empresa", "r1", nil)
	assert.ErrorIs(t, err, domain.ErrRangeNotFound)
}

func TestSaleRepo_NumeroUnicoPorSerie(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	sale := &entity.Sale{ID: "v1", CompanyID: "c-1", BranchID: "suc-1", DocumentTypeID: "BOLETA", Series: "B001", Number: 1, CreatedAt: time.Now()}
	require.NoError(t, store.Sales().Create(ctx, sale))

	dup := *sale
	dup.ID = "v2"
	assert.ErrorIs(t, store.Sales().Create(ctx, &dup), domain.ErrConflict)

	list, err := store.Sales().ListByBranch(ctx, "c-1", "suc-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "v1", list[0].ID)
}
