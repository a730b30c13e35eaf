// Package qu provides empty-struct signalling channels for trigger and quit
// semantics between goroutines.
package qu

// C is your basic empty struct signalling channel.
type C chan struct{}

// T creates an unbuffered chan struct{} for trigger and quit signalling
// (momentary and breaker switches).
func T() C {
	return make(C)
}

// Ts creates a buffered chan struct{} which is specifically intended for
// signalling without blocking, generally one is the size of buffer to be
// used.
func Ts(n int) C {
	return make(C, n)
}

// Q closes the channel, which makes it emit a nil every time it is selected.
func (c C) Q() {
	if !c.IsClosed() {
		close(c)
	}
}

// Signal sends struct{}{} on the channel which functions as a momentary
// switch, useful in pairs for stop/start.
func (c C) Signal() {
	if !c.IsClosed() {
		c <- struct{}{}
	}
}

// Wait should be placed with a `<-` in a select case in addition to the
// channel variable name.
func (c C) Wait() <-chan struct{} {
	return c
}

// IsClosed exposes a test to see if the channel is closed so a caller can
// avoid a panic from closing or signalling on it twice.
func (c C) IsClosed() (o bool) {
	if c == nil {
		return true
	}
	select {
	case <-c:
		o = true
	default:
	}
	return
}
