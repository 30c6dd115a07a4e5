// Package button debounces the two board buttons sampled once per poll tick.
package button

// Button identifies one of the two board buttons.
type Button uint8

const (
	BTN0 Button = iota // starts a capture
	BTN1               // switches the input channel

	NumButtons = 2
)

// DefaultThreshold is the number of consecutive consistent polls needed
// before a level change is accepted.
const DefaultThreshold = 4

// Events is the set of buttons that were pressed on one tick.
type Events uint8

// Pressed reports whether b was pressed.
func (e Events) Pressed(b Button) bool {
	return e&(1<<b) != 0
}

// Each calls fn for every pressed button, BTN0 first.
func (e Events) Each(fn func(Button)) {
	for b := Button(0); b < NumButtons; b++ {
		if e.Pressed(b) {
			fn(b)
		}
	}
}

// Debouncer turns raw button port readings into press events.
type Debouncer struct {
	activeHigh bool
	threshold  int

	stable [NumButtons]bool // debounced level, true = pressed
	count  [NumButtons]int  // consecutive readings disagreeing with stable
}

// NewDebouncer creates a debouncer with both buttons released. Pull-down
// wired buttons read high when pressed and need activeHigh = true.
func NewDebouncer(activeHigh bool, threshold int) *Debouncer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Debouncer{
		activeHigh: activeHigh,
		threshold:  threshold,
	}
}

// Process consumes one raw port reading (bit 0 = BTN0, bit 1 = BTN1) and
// returns the buttons whose debounced state went from released to pressed
// on this tick. Releases are debounced the same way but produce no event.
func (d *Debouncer) Process(raw uint8) Events {
	var ev Events

	for b := Button(0); b < NumButtons; b++ {
		pressed := (raw&(1<<b) != 0) == d.activeHigh

		if pressed == d.stable[b] {
			d.count[b] = 0
			continue
		}

		d.count[b]++
		if d.count[b] < d.threshold {
			continue
		}

		d.count[b] = 0
		d.stable[b] = pressed
		if pressed {
			ev |= 1 << b
		}
	}

	return ev
}

// Held reports the debounced state of b.
func (d *Debouncer) Held(b Button) bool {
	return d.stable[b]
}
