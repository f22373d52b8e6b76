package cqrs

import "context"

// Iterator is a pull-style iterator used for streaming query results and
// event sequences without materializing them up front.
type Iterator[T any] struct {
	nextFunc func(ctx context.Context) (T, bool, error)
	current  T
	err      error
}

// NewIteratorFunc creates an Iterator from a producer function. The function
// returns ok=false when the sequence is exhausted, or an error to stop
// iteration.
func NewIteratorFunc[T any](nextFunc func(ctx context.Context) (T, bool, error)) *Iterator[T] {
	return &Iterator[T]{nextFunc: nextFunc}
}

// NewSliceIterator creates an Iterator over a fixed slice.
func NewSliceIterator[T any](items []T) *Iterator[T] {
	i := 0
	return NewIteratorFunc(func(ctx context.Context) (T, bool, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, false, err
		}
		if i >= len(items) {
			return zero, false, nil
		}
		item := items[i]
		i++
		return item, true, nil
	})
}

// Next advances the iterator. Returns false when the iterator is done or an
// error occurred.
func (it *Iterator[T]) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}

	var ok bool
	it.current, ok, it.err = it.nextFunc(ctx)
	return ok && it.err == nil
}

// Value returns the current item.
func (it *Iterator[T]) Value() T {
	return it.current
}

// Err returns the last error encountered during iteration.
func (it *Iterator[T]) Err() error {
	return it.err
}

// All consumes the iterator and returns the remaining items in a slice.
func (it *Iterator[T]) All(ctx context.Context) ([]T, error) {
	var results []T
	for it.Next(ctx) {
		results = append(results, it.Value())
	}
	return results, it.Err()
}
