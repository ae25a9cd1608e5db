package lockutil

// Guard is the scoped-acquisition helper from spec.md §4.1: it takes a
// lock on construction and releases it on Release. Go has no destructors,
// so "on destruction or any exit path" becomes "call Release via defer" -
// the idiomatic equivalent used throughout this module.
//
// A Guard must not be copied or shared across goroutines; it is a
// single-use value tied to the call that created it.
type Guard struct {
	tok      Token
	release  func()
	released bool
}

// Acquire locks l exclusively for tok, returning a Guard that releases it.
func Acquire(l Exclusive, tok Token) Guard {
	l.Lock(tok)
	return Guard{tok: tok, release: func() { l.Unlock(tok) }}
}

// AcquireShared locks l for shared (read) access by tok.
func AcquireShared(l Shared, tok Token) Guard {
	l.LockShared(tok)
	return Guard{tok: tok, release: func() { l.UnlockShared(tok) }}
}

// Release unlocks the guarded lock. It is idempotent: calling it more than
// once after the first is a no-op, matching "release on any exit path"
// without requiring callers to track whether they already deferred it.
func (g *Guard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.release()
}
