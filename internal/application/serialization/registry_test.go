package serialization_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotSleepp/possbien-sub001/internal/application/dto"
	"github.com/NotSleepp/possbien-sub001/internal/application/serialization"
	"github.com/NotSleepp/possbien-sub001/internal/domain"
	"github.com/NotSleepp/possbien-sub001/internal/domain/repository"
	"github.com/NotSleepp/possbien-sub001/internal/infrastructure/memory"
)

const company = "c-1"

var key = repository.RangeKey{CompanyID: company, BranchID: "suc-1", DocumentTypeID: "BOLETA"}

type countingMetrics struct {
	mu        sync.Mutex
	allocated int
	exhausted int
}

func (m *countingMetrics) NumberAllocated(string) {
	m.mu.Lock()
	m.allocated++
	m.mu.Unlock()
}
func (m *countingMetrics) SeriesExhausted(string) {
	m.mu.Lock()
	m.exhausted++
	m.mu.Unlock()
}
func (m *countingMetrics) SaleClosed(string, time.Duration) {}
func (m *countingMetrics) OrphanedNumber(string)            {}

func ptr(v int64) *int64 { return &v }

func newRegistry(t *testing.T) (*serialization.Registry, *countingMetrics) {
	t.Helper()
	metrics := &countingMetrics{}
	return serialization.NewRegistry(memory.NewStore().Ranges(), metrics, nil), metrics
}

func create(t *testing.T, reg *serialization.Registry, in dto.CreateSerializationRequest) *dto.SerializationResponse {
	t.Helper()
	if in.BranchID == "" {
		in.BranchID = key.BranchID
	}
	if in.DocumentTypeID == "" {
		in.DocumentTypeID = key.DocumentTypeID
	}
	out, err := reg.CreateRange(context.Background(), company, in)
	require.NoError(t, err)
	return out
}

func TestRegistry_AsignaYAvanza(t *testing.T) {
	reg, metrics := newRegistry(t)
	create(t, reg, dto.CreateSerializationRequest{Series: "b001", StartNumber: 1, CurrentNumber: ptr(42), IsDefault: true})

	a, err := reg.AllocateNext(context.Background(), key, "")
	require.NoError(t, err)
	assert.Equal(t, "B001", a.Series, "la serie se normaliza a mayúsculas")
	assert.Equal(t, int64(42), a.Number)

	b, err := reg.AllocateNext(context.Background(), key, " b001 ")
	require.NoError(t, err)
	assert.Equal(t, int64(43), b.Number)
	assert.Equal(t, 2, metrics.allocated)
}

func TestRegistry_LimiteDelRango(t *testing.T) {
	cases := []struct {
		name    string
		current int64
		end     int64
		wantErr error
		want    int64
	}{
		{name: "primero", current: 1, end: 1000, want: 1},
		{name: "penúltimo", current: 999, end: 1000, want: 999},
		{name: "agotado", current: 1000, end: 1000, wantErr: domain.ErrSeriesExhausted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg, metrics := newRegistry(t)
			create(t, reg, dto.CreateSerializationRequest{Series: "B001", StartNumber: 1, CurrentNumber: ptr(tc.current), EndNumber: ptr(tc.end), IsDefault: true})

			a, err := reg.AllocateNext(context.Background(), key, "")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, 1, metrics.exhausted)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, a.Number)
		})
	}
}

func TestRegistry_AgotamientoEsTerminal(t *testing.T) {
	reg, _ := newRegistry(t)
	create(t, reg, dto.CreateSerializationRequest{Series: "B001", StartNumber: 1, CurrentNumber: ptr(999), EndNumber: ptr(1000), IsDefault: true})

	_, err := reg.AllocateNext(context.Background(), key, "")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = reg.AllocateNext(context.Background(), key, "")
		assert.ErrorIs(t, err, domain.ErrSeriesExhausted)
		assert.False(t, domain.IsRetryable(err))
	}
}

func TestRegistry_CambioDeSeriePorDefecto(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()
	create(t, reg, dto.CreateSerializationRequest{Series: "B001", StartNumber: 1, IsDefault: true})
	create(t, reg, dto.CreateSerializationRequest{Series: "B002", StartNumber: 500})

	require.NoError(t, reg.SetDefault(ctx, key, "b002"))

	list, err := reg.ListRanges(ctx, company, key.BranchID)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.False(t, list.Items[0].IsDefault)
	assert.True(t, list.Items[1].IsDefault)

	a, err := reg.AllocateNext(ctx, key, "")
	require.NoError(t, err)
	assert.Equal(t, "B002", a.Series)
	assert.Equal(t, int64(500), a.Number)
}

func TestRegistry_SinSeriePorDefecto(t *testing.T) {
	reg, _ := newRegistry(t)
	create(t, reg, dto.CreateSerializationRequest{Series: "B001", StartNumber: 1})

	_, err := reg.AllocateNext(context.Background(), key, "")
	assert.ErrorIs(t, err, domain.ErrNoDefaultSeriesConfigured)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))

	_, err = reg.AllocateNext(context.Background(), key, "F001")
	assert.ErrorIs(t, err, domain.ErrRangeNotFound)
}

func TestRegistry_ValidaRangos(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()
	invalid := []dto.CreateSerializationRequest{
		{Series: "", StartNumber: 1},
		{Series: "B-001", StartNumber: 1},
		{Series: "DEMASIADOLARGA", StartNumber: 1},
		{Series: "B001", StartNumber: 10, CurrentNumber: ptr(5)},
		{Series: "B001", StartNumber: 1, CurrentNumber: ptr(20), EndNumber: ptr(10)},
		{Series: "B001", StartNumber: -1},
	}
	for _, in := range invalid {
		in.BranchID, in.DocumentTypeID = key.BranchID, key.DocumentTypeID
		_, err := reg.CreateRange(ctx, company, in)
		assert.ErrorIs(t, err, domain.ErrInvalidRange, "serie %q", in.Series)
	}

	create(t, reg, dto.CreateSerializationRequest{Series: "B001", StartNumber: 1})
	_, err := reg.CreateRange(ctx, company, dto.CreateSerializationRequest{
		BranchID: key.BranchID, DocumentTypeID: key.DocumentTypeID, Series: "B001", StartNumber: 1,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateSeries)
}

func TestRegistry_UpdateRangeSoloCambiaElFinal(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()
	r := create(t, reg, dto.CreateSerializationRequest{Series: "B001", StartNumber: 1, CurrentNumber: ptr(1000), EndNumber: ptr(1000), IsDefault: true})
	assert.True(t, r.Exhausted)

	updated, err := reg.UpdateRange(ctx, company, r.ID, dto.UpdateSerializationRequest{EndNumber: ptr(2000)})
	require.NoError(t, err)
	assert.False(t, updated.Exhausted)
	assert.Equal(t, int64(1000), *updated.Remaining)

	a, err := reg.AllocateNext(ctx, key, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), a.Number)

	_, err = reg.UpdateRange(ctx, company, r.ID, dto.UpdateSerializationRequest{EndNumber: ptr(500)})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = reg.GetRange(ctx, company, "no-existe")
	assert.ErrorIs(t, err, domain.ErrRangeNotFound)
}

func TestRegistry_ConcurrenciaContigua(t *testing.T) {
	reg, _ := newRegistry(t)
	create(t, reg, dto.CreateSerializationRequest{Series: "B001", StartNumber: 100, IsDefault: true})

	const workers, perWorker = 8, 25
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got = make(map[int64]int)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				a, err := reg.AllocateNext(context.Background(), key, "")
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				got[a.Number]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, got, workers*perWorker)
	for n := int64(100); n < 100+workers*perWorker; n++ {
		assert.Equal(t, 1, got[n], "número %d", n)
	}
}
