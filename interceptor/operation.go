package interceptor

import (
	"fmt"
	"strings"
)

// Kind is the type of a cache operation.
type Kind int

const (
	// KindCacheable serves from cache when possible, else invokes and stores.
	KindCacheable Kind = iota + 1
	// KindPut always invokes and stores the result.
	KindPut
	// KindEvict removes one entry or all entries.
	KindEvict
)

// String returns the lower-case kind name used in YAML declarations.
func (k Kind) String() string {
	switch k {
	case KindCacheable:
		return "cacheable"
	case KindPut:
		return "put"
	case KindEvict:
		return "evict"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Operation declares one cache operation for a call site. Values are
// immutable: the With methods return modified copies.
type Operation struct {
	Kind       Kind
	CacheNames []string

	// Key is an expression producing the cache key. Empty selects the key
	// generator.
	Key string
	// Condition must evaluate to true for the operation to apply.
	Condition string
	// Unless vetoes storing the result. Cacheable only.
	Unless string
	// AllEntries clears the caches instead of evicting one key. Evict only.
	AllEntries bool
	// BeforeInvocation evicts before the target runs. Evict only.
	BeforeInvocation bool
	// Sync coalesces concurrent misses for the same key. Cacheable only.
	Sync bool
}

// Cacheable declares a read-through operation on the named caches.
func Cacheable(cacheNames ...string) Operation {
	return newOperation(KindCacheable, cacheNames)
}

// Put declares a store of the result in the named caches.
func Put(cacheNames ...string) Operation {
	return newOperation(KindPut, cacheNames)
}

// Evict declares an eviction from the named caches.
func Evict(cacheNames ...string) Operation {
	return newOperation(KindEvict, cacheNames)
}

func newOperation(kind Kind, cacheNames []string) Operation {
	seen := make(map[string]struct{}, len(cacheNames))
	names := make([]string, 0, len(cacheNames))
	for _, name := range cacheNames {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return Operation{Kind: kind, CacheNames: names}
}

// WithKey sets the key expression. An empty expression uses the site's key generator.
func (o Operation) WithKey(expr string) Operation {
	o.Key = expr
	return o
}

// WithCondition sets the expression that must be true for the operation to apply.
// It is evaluated before the invocation.
func (o Operation) WithCondition(expr string) Operation {
	o.Condition = expr
	return o
}

// WithUnless sets the expression that vetoes a store when true. It is evaluated
// after the invocation and may reference #result.
func (o Operation) WithUnless(expr string) Operation {
	o.Unless = expr
	return o
}

// WithAllEntries makes an eviction clear every entry of its caches.
func (o Operation) WithAllEntries() Operation {
	o.AllEntries = true
	return o
}

// WithBeforeInvocation makes an eviction run before the target is called.
func (o Operation) WithBeforeInvocation() Operation {
	o.BeforeInvocation = true
	return o
}

// WithSync makes concurrent misses for the same key share one invocation.
func (o Operation) WithSync() Operation {
	o.Sync = true
	return o
}

// String renders the operation for logs and error messages.
func (o Operation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%v", o.Kind, o.CacheNames)
	if o.Key != "" {
		fmt.Fprintf(&b, " key=%q", o.Key)
	}
	if o.Condition != "" {
		fmt.Fprintf(&b, " condition=%q", o.Condition)
	}
	if o.Unless != "" {
		fmt.Fprintf(&b, " unless=%q", o.Unless)
	}
	if o.AllEntries {
		b.WriteString(" allEntries")
	}
	if o.BeforeInvocation {
		b.WriteString(" beforeInvocation")
	}
	if o.Sync {
		b.WriteString(" sync")
	}
	return b.String()
}

func (o Operation) operations() []Operation {
	return []Operation{o}
}

// Composite groups several operations under one call site. They share one
// evaluation context and one invocation of the target.
type Composite struct {
	Operations []Operation
}

// Caching builds a Composite from ops in declaration order.
func Caching(ops ...Operation) Composite {
	return Composite{Operations: append([]Operation(nil), ops...)}
}

func (c Composite) operations() []Operation {
	return c.Operations
}

// Declaration is an Operation or a Composite.
type Declaration interface {
	operations() []Operation
}
