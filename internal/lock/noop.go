package lock

// NoOp satisfies Handle without touching the filesystem. It is used when
// locking is disabled and only tracks whether Lock was called.
type NoOp struct {
	path   string
	locked bool
}

// NewNoOp returns an unheld NoOp for path.
func NewNoOp(path string) *NoOp {
	return &NoOp{path: path}
}

func (l *NoOp) Path() string { return l.path }

func (l *NoOp) Lock() error {
	l.locked = true
	return nil
}

func (l *NoOp) Unlock() error {
	l.locked = false
	return nil
}

func (l *NoOp) IsLocked() bool { return l.locked }

func (l *NoOp) WithLock(fn func() error) error { return WithLock(l, fn) }
