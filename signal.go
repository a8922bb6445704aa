package resumable

import "sync"

// Signal identifies a lifecycle event emitted by a Chunk, File, or Session.
type Signal int

const (
	// FileAdded fires once a File has been constructed and registered with
	// a Session, before any of its chunks have been scheduled.
	FileAdded Signal = iota
	// ChunkCompleted fires when a single Chunk reaches StateDone, whether
	// via a matching probe or a successful upload.
	ChunkCompleted
	// FileCompleted fires exactly once per File, after every one of its
	// chunks has reached StateDone.
	FileCompleted
)

func (s Signal) String() string {
	switch s {
	case FileAdded:
		return "FILE_ADDED"
	case ChunkCompleted:
		return "CHUNK_COMPLETED"
	case FileCompleted:
		return "FILE_COMPLETED"
	default:
		return "UNKNOWN_SIGNAL"
	}
}

// Handler is invoked synchronously when a Signal it is registered for is
// emitted. Handlers read state through the emitter reference they already
// hold from subscribing — signals carry no payload beyond their kind.
type Handler func(Signal)

// Bus is a minimal observer mechanism: a mapping from signal kind to an
// ordered list of handlers, plus a set of parent buses that every emission
// is re-emitted to. Every Chunk, File, and Session owns its own Bus — there
// is no global bus.
//
// A Bus is safe for concurrent use. There is no Unsubscribe; subscriptions
// live for the lifetime of the Bus.
type Bus struct {
	mu       sync.Mutex
	handlers map[Signal][]Handler
	proxies  []*Bus
}

// NewBus returns an empty, ready-to-use Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Signal][]Handler)}
}

// Register appends handler to the list invoked for kind. Handlers run in
// registration order.
func (b *Bus) Register(kind Signal, handler Handler) {
	if handler == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[kind] = append(b.handlers[kind], handler)
}

// ProxyTo arranges for every future emission on b to be re-emitted verbatim
// on other. Proxy relationships compose transitively: if other is itself
// proxying to a third bus, a signal emitted on b reaches that bus too.
func (b *Bus) ProxyTo(other *Bus) {
	if other == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.proxies = append(b.proxies, other)
}

// Emit invokes every handler registered for kind on this bus, in
// registration order, then re-emits kind on every proxy parent. Handlers
// run synchronously on the emitting goroutine.
func (b *Bus) Emit(kind Signal) {
	b.mu.Lock()
	handlers := make([]Handler, len(b.handlers[kind]))
	copy(handlers, b.handlers[kind])
	proxies := make([]*Bus, len(b.proxies))
	copy(proxies, b.proxies)
	b.mu.Unlock()

	for _, h := range handlers {
		h(kind)
	}

	for _, p := range proxies {
		p.Emit(kind)
	}
}
