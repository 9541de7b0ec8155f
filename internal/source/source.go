// Package source adapts the caller's preparation object into a single
// Advance operation used by the painter.
package source

import (
	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"

	v1 "github.com/stimkit/stimkit/pkg/stimkit/v1"
)

// Kind tells which shape a Source wraps.
type Kind int

const (
	KindInvalid Kind = iota
	// KindFunction is a predicate called again for every step.
	KindFunction
	// KindIterator is a one-shot iterator advanced once per step.
	KindIterator
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindIterator:
		return "iterator"
	default:
		return "invalid"
	}
}

// Source prepares the next stimulus. The shape is fixed at construction.
type Source struct {
	kind      Kind
	fn        func() bool
	it        v1.Iterator
	exhausted bool
}

// FromFunc wraps a predicate.
func FromFunc(fn func() bool) *Source {
	return &Source{kind: KindFunction, fn: fn}
}

// FromIterator wraps a one-shot iterator.
func FromIterator(it v1.Iterator) *Source {
	return &Source{kind: KindIterator, it: it}
}

// FromPreparation picks the shape of p. A preparation with neither or both
// shapes set is a ConfigError.
func FromPreparation(p v1.Preparation) (*Source, error) {
	fn, it := p.Func(), p.Iterator()
	switch {
	case fn != nil && it != nil:
		return nil, stimerrors.NewConfigError("preparation object is both a function and an iterator", nil)
	case fn != nil:
		return FromFunc(fn), nil
	case it != nil:
		return FromIterator(it), nil
	default:
		return nil, stimerrors.NewConfigError("unsupported preparation object: need a function or an iterator", nil)
	}
}

func (s *Source) Kind() Kind {
	if s == nil {
		return KindInvalid
	}
	return s.kind
}

// Validate reports a ConfigError for a zero or nil-backed source.
func (s *Source) Validate() error {
	switch s.Kind() {
	case KindFunction:
		if s.fn != nil {
			return nil
		}
	case KindIterator:
		if s.it != nil {
			return nil
		}
	}
	return stimerrors.NewConfigError("stimulus source is not initialised", nil)
}

// Advance prepares the next stimulus and reports whether there was one.
// Once an iterator reports exhaustion it is never called again.
func (s *Source) Advance() bool {
	switch s.kind {
	case KindFunction:
		return s.fn()
	case KindIterator:
		if s.exhausted {
			return false
		}
		if !s.it.Next() {
			s.exhausted = true
			return false
		}
		return true
	default:
		return false
	}
}
