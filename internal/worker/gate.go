package worker

import (
	"context"
	"sync"
)

// Gate — признак доступности внешних сервисов (services_not_available).
//
// Пока сервис известен как недоступный, все стадии блокируются в Wait
// перед очередной единицей работы. Монитор здоровья открывает и
// закрывает Gate; стадии о причинах не знают.
type Gate struct {
	mu        sync.Mutex
	available bool
	open      chan struct{} // закрыт, пока сервисы доступны
}

// NewGate создаёт Gate в заданном состоянии.
func NewGate(available bool) *Gate {
	g := &Gate{open: make(chan struct{})}
	if available {
		g.available = true
		close(g.open)
	}
	return g
}

// SetAvailable открывает Gate и будит всех ожидающих.
func (g *Gate) SetAvailable() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.available {
		return
	}
	g.available = true
	close(g.open)
}

// SetUnavailable закрывает Gate.
func (g *Gate) SetUnavailable() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.available {
		return
	}
	g.available = false
	g.open = make(chan struct{})
}

// Available возвращает текущее состояние.
func (g *Gate) Available() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available
}

// Wait блокируется, пока Gate закрыт или не отменён ctx.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	open := g.open
	g.mu.Unlock()

	select {
	case <-open:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
