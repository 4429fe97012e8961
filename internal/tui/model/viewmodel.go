package model

import (
	"context"
	"sync"
	"time"

	"github.com/voluntr/volchat/internal/tui/client"
)

// ViewModel caches daemon status for the UI and signals refreshes. Thread
// and conversation state lives in the chat controller; this only tracks what
// the header and status bar render.
type ViewModel struct {
	mu sync.RWMutex

	client    *client.Client
	status    *client.StatusInfo
	startedAt time.Time
	Flash     Flash

	refreshCh chan struct{}
}

// NewViewModel creates a view model connected to the daemon client.
func NewViewModel(c *client.Client) *ViewModel {
	return &ViewModel{
		client:    c,
		startedAt: time.Now(),
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// LoadStatus fetches the daemon's current runtime state.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	st, err := vm.client.Status(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = st
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// Status returns a snapshot of the daemon status, or nil before first load.
func (vm *ViewModel) Status() *client.StatusInfo {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.status == nil {
		return nil
	}
	st := *vm.status
	return &st
}

// Uptime returns how long this UI session has been running.
func (vm *ViewModel) Uptime() time.Duration {
	return time.Since(vm.startedAt)
}
