package metric

// Counter counts events since its last reset
type Counter struct {
	value int
}

// Value returns the current value of the counter
func (c *Counter) Value() int {
	return c.value
}

// Inc increases the count by one
func (c *Counter) Inc() {
	c.value++
}

// Reset sets the value of the counter to zero
func (c *Counter) Reset() {
	c.value = 0
}

// NewCounter returns a new zero-valued counter
func NewCounter() *Counter {
	return &Counter{}
}
