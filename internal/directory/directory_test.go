package directory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svennapp/svennProductsFE/internal/gateway"
)

type fakeClient struct {
	mu      sync.Mutex
	calls   []int
	scripts map[int][]gateway.Script
	err     error
	gate    map[int]chan struct{}
}

func (f *fakeClient) ListWarehouses(context.Context) ([]gateway.Warehouse, error) {
	return []gateway.Warehouse{{ID: 1, Name: "byggmakker"}}, nil
}

func (f *fakeClient) ListWarehouseScripts(_ context.Context, id int) ([]gateway.Script, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	gate := f.gate[id]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.scripts[id], nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newFake() *fakeClient {
	return &fakeClient{scripts: map[int][]gateway.Script{
		1: {{ID: 10, Name: "byggmakker_spider", WarehouseID: 1}},
		2: {{ID: 20, Name: "monter_spider", WarehouseID: 2}, {ID: 21, Name: "monter_processor", WarehouseID: 2}},
	}}
}

func TestSetWarehouse_Fetches(t *testing.T) {
	fc := newFake()
	d := New(fc, zerolog.Nop())

	require.NoError(t, d.SetWarehouse(context.Background(), 2))
	assert.Len(t, d.Scripts(), 2)
	assert.Equal(t, 2, d.WarehouseID())
	assert.False(t, d.IsLoading())
	assert.NoError(t, d.Err())

	// Same warehouse again does not refetch.
	require.NoError(t, d.SetWarehouse(context.Background(), 2))
	assert.Equal(t, 1, fc.callCount())
}

func TestRefresh_EmptyWarehouseSkipsNetwork(t *testing.T) {
	fc := newFake()
	d := New(fc, zerolog.Nop())

	require.NoError(t, d.SetWarehouse(context.Background(), 1))
	require.NoError(t, d.SetWarehouse(context.Background(), 0))

	assert.Empty(t, d.Scripts())
	assert.Equal(t, 1, fc.callCount())
}

func TestRefresh_ErrorKeepsScriptsOfSameWarehouse(t *testing.T) {
	fc := newFake()
	d := New(fc, zerolog.Nop())
	require.NoError(t, d.SetWarehouse(context.Background(), 1))

	fc.err = errors.New("connection refused")
	err := d.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fc.err)
	assert.Equal(t, fc.err, d.Err())
	assert.Len(t, d.Scripts(), 1)

	fc.err = nil
	require.NoError(t, d.Refresh(context.Background()))
	assert.NoError(t, d.Err())
}

func TestSetWarehouse_FailedSwitchClearsAndRetryRefetches(t *testing.T) {
	fc := newFake()
	d := New(fc, zerolog.Nop())
	require.NoError(t, d.SetWarehouse(context.Background(), 1))

	fc.err = errors.New("connection refused")
	require.Error(t, d.SetWarehouse(context.Background(), 2))
	assert.Equal(t, 2, d.WarehouseID())
	assert.Empty(t, d.Scripts(), "warehouse 1 scripts must not be listed under warehouse 2")
	_, found := d.Script(10)
	assert.False(t, found)

	fc.err = nil
	require.NoError(t, d.SetWarehouse(context.Background(), 2))
	assert.Equal(t, 3, fc.callCount())
	scripts := d.Scripts()
	require.Len(t, scripts, 2)
	for _, s := range scripts {
		assert.Equal(t, 2, s.WarehouseID)
	}

	// Loaded now, so selecting it again is a no-op.
	require.NoError(t, d.SetWarehouse(context.Background(), 2))
	assert.Equal(t, 3, fc.callCount())
}

func TestRefresh_LastResponseWins(t *testing.T) {
	fc := newFake()
	fc.gate = map[int]chan struct{}{1: make(chan struct{})}
	d := New(fc, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		d.SetWarehouse(context.Background(), 1)
		close(done)
	}()

	require.Eventually(t, d.IsLoading, time.Second, 5*time.Millisecond)
	require.NoError(t, d.SetWarehouse(context.Background(), 2))
	assert.Len(t, d.Scripts(), 2)

	// The stale response for warehouse 1 lands after warehouse 2 was
	// selected and replaces the list.
	close(fc.gate[1])
	<-done
	scripts := d.Scripts()
	require.Len(t, scripts, 1)
	assert.Equal(t, 1, scripts[0].WarehouseID)
	assert.Equal(t, 2, d.WarehouseID())
}

func TestApplyExecution(t *testing.T) {
	d := New(newFake(), zerolog.Nop())
	require.NoError(t, d.SetWarehouse(context.Background(), 2))

	at, err := gateway.ParseTimestamp("2024-01-01T00:00:00Z")
	require.NoError(t, err)
	ok := d.ApplyExecution(20, at, &gateway.Execution{ScriptID: 20, Status: gateway.ExecutionCompleted})
	require.True(t, ok)

	s, found := d.Script(20)
	require.True(t, found)
	require.NotNil(t, s.LastExecutionTime)
	assert.Equal(t, "2024-01-01T00:00:00Z", s.LastExecutionTime.String())
	assert.Equal(t, gateway.ExecutionCompleted, s.LastExecution.Status)

	// nil leaves the stored values in place.
	require.True(t, d.ApplyExecution(20, nil, nil))
	s, _ = d.Script(20)
	assert.NotNil(t, s.LastExecutionTime)

	assert.False(t, d.ApplyExecution(999, at, nil))
}

func TestScripts_ReturnsCopy(t *testing.T) {
	d := New(newFake(), zerolog.Nop())
	require.NoError(t, d.SetWarehouse(context.Background(), 1))

	scripts := d.Scripts()
	scripts[0].Name = "changed"
	s, _ := d.Script(10)
	assert.Equal(t, "byggmakker_spider", s.Name)
}
