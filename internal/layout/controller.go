package layout

import (
	"math"
	"sync"
)

// Share bounds in percent while panels sit side by side.
const (
	MinShare = 20.0
	MaxShare = 80.0
)

// DefaultBreakpoint is the viewport width below which panels stack.
const DefaultBreakpoint = 768.0

// State is the current split. Shares sum to 100 side by side; stacked
// panels both take the full width.
type State struct {
	EditorShare  float64 `json:"editor_share"`
	PreviewShare float64 `json:"preview_share"`
	Dragging     bool    `json:"dragging"`
	Stacked      bool    `json:"stacked"`
}

// Geometry describes the split container and the viewport.
// A ViewportWidth of zero means unknown and is treated as wide.
type Geometry struct {
	ContainerLeft  float64 `json:"container_left"`
	ContainerWidth float64 `json:"container_width"`
	ViewportWidth  float64 `json:"viewport_width"`
}

// Controller runs the Idle/Dragging state machine for the divider.
//
// Only the divider's pointer-down listener lives outside a drag. Move,
// up, cancel and leave listeners are attached on entering Dragging and
// detached on every way out of it.
type Controller struct {
	mu         sync.Mutex
	bus        *Bus
	breakpoint float64
	geom       Geometry
	state      State
	split      float64 // editor share to restore after stacking

	detachDivider func()
	detachDrag    []func()
	observers     []func(State)
}

// Option configures a Controller.
type Option func(*Controller)

// WithBreakpoint overrides DefaultBreakpoint.
func WithBreakpoint(px float64) Option {
	return func(c *Controller) {
		if px > 0 {
			c.breakpoint = px
		}
	}
}

// WithObserver registers fn to receive every state change. fn runs with
// the controller lock held and must not call back into the controller.
func WithObserver(fn func(State)) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, fn)
	}
}

// NewController creates an idle 50/50 split listening on bus.
func NewController(bus *Bus, opts ...Option) *Controller {
	c := &Controller{
		bus:        bus,
		breakpoint: DefaultBreakpoint,
		state:      State{EditorShare: 50, PreviewShare: 50},
		split:      50,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.attachDivider()
	return c
}

// State returns the current layout.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Geometry returns the last geometry set.
func (c *Controller) Geometry() Geometry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.geom
}

// SetGeometry records container and viewport size. Crossing the
// breakpoint switches between stacked and side-by-side panels.
func (c *Controller) SetGeometry(g Geometry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.geom = g
	stacked := g.ViewportWidth > 0 && g.ViewportWidth < c.breakpoint
	switch {
	case stacked && !c.state.Stacked:
		c.endDragLocked()
		if c.detachDivider != nil {
			c.detachDivider()
			c.detachDivider = nil
		}
		c.split = c.state.EditorShare
		c.setLocked(State{EditorShare: 100, PreviewShare: 100, Stacked: true})
	case !stacked && c.state.Stacked:
		c.attachDivider()
		c.setLocked(sideBySide(c.split))
	}
}

// Close detaches every listener the controller holds.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endDragLocked()
	if c.detachDivider != nil {
		c.detachDivider()
		c.detachDivider = nil
	}
}

// attachDivider registers the divider's pointer-down listener.
func (c *Controller) attachDivider() {
	c.detachDivider = c.bus.Listen(c.onDown, PointerDown)
}

func (c *Controller) onDown(ev PointerEvent) {
	if ev.Target != TargetDivider {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Dragging || c.state.Stacked {
		return
	}

	c.detachDrag = []func(){
		c.bus.Listen(c.onMove, PointerMove),
		c.bus.Listen(c.onEnd, PointerUp, PointerCancel, PointerLeave),
	}
	next := c.state
	next.Dragging = true
	c.setLocked(next)
}

func (c *Controller) onMove(ev PointerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Dragging {
		return
	}
	share, ok := editorShare(ev.X, c.geom.ContainerLeft, c.geom.ContainerWidth)
	if !ok {
		return
	}
	next := sideBySide(share)
	next.Dragging = true
	c.setLocked(next)
}

func (c *Controller) onEnd(PointerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endDragLocked()
}

func (c *Controller) endDragLocked() {
	for _, detach := range c.detachDrag {
		detach()
	}
	c.detachDrag = nil
	if c.state.Dragging {
		next := c.state
		next.Dragging = false
		c.setLocked(next)
	}
}

func (c *Controller) setLocked(s State) {
	if s == c.state {
		return
	}
	c.state = s
	for _, fn := range c.observers {
		fn(s)
	}
}

// editorShare maps a pointer position to a clamped editor percentage.
// It reports false when the container has no width.
func editorShare(x, left, width float64) (float64, bool) {
	if width <= 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return 0, false
	}
	if math.IsNaN(x) || math.IsNaN(left) {
		return 0, false
	}
	pct := (x - left) / width * 100
	return clamp(pct, MinShare, MaxShare), true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// sideBySide builds a side-by-side state for an editor share. Shares sit on
// a 1/1024 grid so both are exact binary fractions summing to exactly 100.
func sideBySide(editor float64) State {
	editor = clamp(math.Round(editor*1024)/1024, MinShare, MaxShare)
	return State{EditorShare: editor, PreviewShare: 100 - editor}
}
