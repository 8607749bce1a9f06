package sets

// Set is a simple generic hash set for comparable keys.
// Usage: s := sets.New[string]("a","b"); s.Add("c"); if s.Has("b") {...}
type Set[T comparable] map[T]struct{}

// New creates a set pre-populated with the provided values.
func New[T comparable](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts value into the set.
func (s Set[T]) Add(v T) { s[v] = struct{}{} }

// Has returns true if v is present.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Delete removes v if present.
func (s Set[T]) Delete(v T) { delete(s, v) }

// Clone returns a shallow copy.
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Ordered is a set that remembers first-insertion order.
// The zero value is ready to use.
type Ordered[T comparable] struct {
	seen  Set[T]
	items []T
}

// Add inserts v and reports whether it was new.
func (o *Ordered[T]) Add(v T) bool {
	if o.seen == nil {
		o.seen = New[T]()
	}
	if o.seen.Has(v) {
		return false
	}
	o.seen.Add(v)
	o.items = append(o.items, v)
	return true
}

// Has returns true if v is present.
func (o *Ordered[T]) Has(v T) bool { return o.seen.Has(v) }

// Len returns the number of elements.
func (o *Ordered[T]) Len() int { return len(o.items) }

// Items returns the elements in insertion order. The slice is a copy.
func (o *Ordered[T]) Items() []T {
	out := make([]T, len(o.items))
	copy(out, o.items)
	return out
}
