package interceptor

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoProceed is returned for an Invocation without a target function.
	ErrNoProceed = errors.New("invocation has no proceed function")
	// ErrNilKey is returned when a key expression evaluates to nil.
	ErrNilKey = errors.New("key expression evaluated to nil")
	// ErrTypeMismatch is returned by Call when a cached value cannot be
	// converted to the requested type.
	ErrTypeMismatch = errors.New("cached value has unexpected type")
)

// CacheStoreError reports a failed operation against a named cache.
type CacheStoreError struct {
	Cache string
	Op    string
	Err   error
}

func (e *CacheStoreError) Error() string {
	return fmt.Sprintf("cache %q: %s: %v", e.Cache, e.Op, e.Err)
}

// Unwrap returns the underlying cache failure.
func (e *CacheStoreError) Unwrap() error {
	return e.Err
}

// DeclarationError reports an invalid declaration for a call site.
type DeclarationError struct {
	Site string
	Err  error
}

func (e *DeclarationError) Error() string {
	return fmt.Sprintf("invalid cache declaration for %q: %v", e.Site, e.Err)
}

// Unwrap returns the validation or parse error.
func (e *DeclarationError) Unwrap() error {
	return e.Err
}
