package imapfetch

// lazy is a value computed on first use and kept until explicitly reloaded.
type lazy[T any] struct {
	v  T
	ok bool
}

// get returns the cached value, calling load if there is none yet or if
// reload is set. A failed load leaves the previous value in place.
func (l *lazy[T]) get(reload bool, load func() (T, error)) (T, error) {
	if l.ok && !reload {
		return l.v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	l.v, l.ok = v, true
	return v, nil
}
