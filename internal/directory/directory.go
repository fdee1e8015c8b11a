package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/svennapp/svennProductsFE/internal/gateway"
)

// Client is the subset of the gateway the directory reads from.
type Client interface {
	ListWarehouses(ctx context.Context) ([]gateway.Warehouse, error)
	ListWarehouseScripts(ctx context.Context, warehouseID int) ([]gateway.Script, error)
}

// Directory caches the scripts of the selected warehouse.
//
// Fetches are not coalesced. A warehouse change does not abort a fetch that
// is already in flight, so whichever response arrives last is stored even if
// it belongs to a warehouse that is no longer selected.
type Directory struct {
	client Client
	logger zerolog.Logger

	mu          sync.RWMutex
	warehouseID int
	selected    bool
	scripts     []gateway.Script
	loadedID    int // warehouse the cached scripts belong to
	inFlight    int
	err         error
}

func New(client Client, logger zerolog.Logger) *Directory {
	return &Directory{
		client: client,
		logger: logger.With().Str("component", "directory").Logger(),
	}
}

// Warehouses lists all warehouses.
func (d *Directory) Warehouses(ctx context.Context) ([]gateway.Warehouse, error) {
	warehouses, err := d.client.ListWarehouses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	return warehouses, nil
}

// WarehouseID returns the selected warehouse, 0 when none is selected.
func (d *Directory) WarehouseID() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.warehouseID
}

// SetWarehouse selects a warehouse and fetches its scripts. Selecting the
// current warehouse again is a no-op once its scripts have loaded.
func (d *Directory) SetWarehouse(ctx context.Context, warehouseID int) error {
	d.mu.Lock()
	if d.selected && d.warehouseID == warehouseID && d.loadedID == warehouseID {
		d.mu.Unlock()
		return nil
	}
	d.warehouseID = warehouseID
	d.selected = true
	d.mu.Unlock()

	return d.Refresh(ctx)
}

// Refresh refetches the scripts of the selected warehouse. With no warehouse
// selected the list is cleared without a network call.
func (d *Directory) Refresh(ctx context.Context) error {
	d.mu.Lock()
	warehouseID := d.warehouseID
	if warehouseID == 0 {
		d.scripts = nil
		d.loadedID = 0
		d.err = nil
		d.mu.Unlock()
		return nil
	}
	d.inFlight++
	d.mu.Unlock()

	scripts, err := d.client.ListWarehouseScripts(ctx, warehouseID)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.inFlight--
	if err != nil {
		d.err = err
		// A failed switch must not leave the previous warehouse's scripts
		// listed under the new selection.
		if d.loadedID != d.warehouseID {
			d.scripts = nil
			d.loadedID = 0
		}
		d.logger.Warn().Err(err).Int("warehouse_id", warehouseID).Msg("failed to load scripts")
		return fmt.Errorf("list scripts for warehouse %d: %w", warehouseID, err)
	}
	if warehouseID != d.warehouseID {
		d.logger.Debug().
			Int("warehouse_id", warehouseID).
			Int("selected_warehouse_id", d.warehouseID).
			Msg("storing scripts for a warehouse that is no longer selected")
	}
	d.scripts = scripts
	d.loadedID = warehouseID
	d.err = nil
	return nil
}

// Scripts returns a copy of the cached scripts.
func (d *Directory) Scripts() []gateway.Script {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]gateway.Script, len(d.scripts))
	copy(out, d.scripts)
	return out
}

// Script returns the cached script with the given id.
func (d *Directory) Script(scriptID int) (gateway.Script, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, s := range d.scripts {
		if s.ID == scriptID {
			return s, true
		}
	}
	return gateway.Script{}, false
}

// IsLoading reports whether any fetch is in flight.
func (d *Directory) IsLoading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.inFlight > 0
}

// Err returns the error of the last completed fetch, nil after a success.
func (d *Directory) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

// ApplyExecution records a finished execution on a cached script. A nil
// argument leaves that field untouched, so a known value never goes back to
// null. Reports false when the script is not in the current list.
func (d *Directory) ApplyExecution(scriptID int, at *gateway.Timestamp, exec *gateway.Execution) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.scripts {
		if d.scripts[i].ID != scriptID {
			continue
		}
		if at != nil {
			t := *at
			d.scripts[i].LastExecutionTime = &t
		}
		if exec != nil {
			e := *exec
			d.scripts[i].LastExecution = &e
		}
		return true
	}
	return false
}
