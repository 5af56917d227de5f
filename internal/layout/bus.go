// Package layout implements the resizable editor/preview split.
package layout

import (
	"slices"
	"sync"
)

// PointerKind identifies a pointer event.
type PointerKind int

// Pointer event kinds. Touch start/move/end map onto Down/Move/Up.
const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
	PointerCancel
	// PointerLeave fires when the pointer leaves the window.
	PointerLeave
)

var pointerKindNames = map[PointerKind]string{
	PointerDown:   "down",
	PointerMove:   "move",
	PointerUp:     "up",
	PointerCancel: "cancel",
	PointerLeave:  "leave",
}

func (k PointerKind) String() string {
	if s, ok := pointerKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParsePointerKind maps a name such as "move" to its kind.
func ParsePointerKind(s string) (PointerKind, bool) {
	for k, name := range pointerKindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Target is the element an event was delivered to.
type Target int

const (
	TargetWindow Target = iota
	TargetDivider
)

// PointerEvent is a mouse or touch event in viewport coordinates.
type PointerEvent struct {
	Kind   PointerKind
	Target Target
	X      float64
	Touch  bool
}

type listener struct {
	kinds []PointerKind
	fn    func(PointerEvent)
}

// Bus delivers pointer events to the listeners attached for their kind.
// Listeners are called in attach order, outside the bus lock, and a
// listener removed during dispatch is not called afterwards.
type Bus struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]listener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[int]listener)}
}

// Listen attaches fn for the given kinds and returns its detach function.
// Detach is idempotent.
func (b *Bus) Listen(fn func(PointerEvent), kinds ...PointerKind) (detach func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = listener{kinds: kinds, fn: fn}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Dispatch delivers ev to every listener attached for ev.Kind.
func (b *Bus) Dispatch(ev PointerEvent) {
	b.mu.Lock()
	ids := make([]int, 0, len(b.listeners))
	for id, l := range b.listeners {
		if slices.Contains(l.kinds, ev.Kind) {
			ids = append(ids, id)
		}
	}
	b.mu.Unlock()
	slices.Sort(ids)

	for _, id := range ids {
		b.mu.Lock()
		l, ok := b.listeners[id]
		b.mu.Unlock()
		if ok {
			l.fn(ev)
		}
	}
}

// ListenerCount returns the number of attached listeners.
func (b *Bus) ListenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
