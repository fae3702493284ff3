package wallet

import (
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Emitter fans provider events out to registered handlers.
type Emitter struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[Event]map[uint64]Handler
}

func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[Event]map[uint64]Handler)}
}

// On registers handler for event. The returned function is idempotent.
func (e *Emitter) On(event Event, handler Handler) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	if e.handlers[event] == nil {
		e.handlers[event] = make(map[uint64]Handler)
	}
	e.handlers[event][id] = handler
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.handlers[event], id)
			e.mu.Unlock()
		})
	}
}

// Emit calls every handler of event outside the lock.
func (e *Emitter) Emit(event Event, key solana.PublicKey) {
	e.mu.Lock()
	handlers := make([]Handler, 0, len(e.handlers[event]))
	for _, h := range e.handlers[event] {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(key)
	}
}
