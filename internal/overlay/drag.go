package overlay

// Drag tracks a pointer drag of the window. Cursor coordinates are relative
// to the window.
type Drag struct {
	active bool
	anchor Point
}

// Press captures the anchor.
func (d *Drag) Press(cursor Point) {
	d.active = true
	d.anchor = cursor
}

func (d *Drag) Release() {
	d.active = false
}

func (d *Drag) Active() bool {
	return d.active
}

// Move returns the new window position for the cursor, and false when no
// drag is in progress or the window would not move.
func (d *Drag) Move(window, cursor Point) (Point, bool) {
	if !d.active {
		return window, false
	}

	dx, dy := cursor.X-d.anchor.X, cursor.Y-d.anchor.Y
	if dx == 0 && dy == 0 {
		return window, false
	}

	return Point{X: window.X + dx, Y: window.Y + dy}, true
}
