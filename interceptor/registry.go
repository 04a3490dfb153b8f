package interceptor

import (
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-cache-intercept/expression"
)

const resultVar = "result"

// CompiledOperation is an Operation with its expressions parsed.
type CompiledOperation struct {
	Operation

	key       *expression.Expression
	condition *expression.Expression
	unless    *expression.Expression
}

// HasKey reports whether the operation declares an explicit key expression.
func (op *CompiledOperation) HasKey() bool {
	return op.key != nil
}

// OperationSource resolves the operations declared for a call site.
type OperationSource interface {
	Operations(site string) []*CompiledOperation
}

// Validate checks the fields allowed for the operation kind.
func (o Operation) Validate() error {
	notCacheable := o.Kind != KindCacheable
	notEvict := o.Kind != KindEvict

	return validation.ValidateStruct(&o,
		validation.Field(&o.Kind, validation.Required, validation.In(KindCacheable, KindPut, KindEvict)),
		validation.Field(&o.CacheNames, validation.Required, validation.Each(validation.Required)),
		validation.Field(&o.Unless, validation.When(notCacheable, validation.Empty.Error("only allowed on cacheable"))),
		validation.Field(&o.Sync, validation.When(notCacheable, validation.Empty.Error("only allowed on cacheable"))),
		validation.Field(&o.AllEntries, validation.When(notEvict, validation.Empty.Error("only allowed on evict"))),
		validation.Field(&o.BeforeInvocation, validation.When(notEvict, validation.Empty.Error("only allowed on evict"))),
	)
}

// Registry holds the compiled declarations of every call site. It is safe
// for concurrent use; registering a site again replaces its declarations.
type Registry struct {
	sites *xsync.MapOf[string, []*CompiledOperation]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sites: xsync.NewMapOf[string, []*CompiledOperation]()}
}

// Register validates and compiles decls for site.
func (r *Registry) Register(site string, decls ...Declaration) error {
	compiled, err := compileSite(site, decls)
	if err != nil {
		return err
	}
	r.sites.Store(site, compiled)
	return nil
}

// RegisterAll compiles every site of decls and stores them only when all of
// them are valid. On error the registry is left unchanged.
func (r *Registry) RegisterAll(decls map[string]Declaration) error {
	sites := make([]string, 0, len(decls))
	for site := range decls {
		sites = append(sites, site)
	}
	sort.Strings(sites)

	compiled := make([][]*CompiledOperation, len(sites))
	for i, site := range sites {
		ops, err := compileSite(site, []Declaration{decls[site]})
		if err != nil {
			return err
		}
		compiled[i] = ops
	}

	for i, site := range sites {
		r.sites.Store(site, compiled[i])
	}
	return nil
}

func compileSite(site string, decls []Declaration) ([]*CompiledOperation, error) {
	if site == "" {
		return nil, &DeclarationError{Site: site, Err: errors.New("site cannot be empty")}
	}

	var ops []Operation
	for _, decl := range decls {
		if decl == nil {
			continue
		}
		ops = append(ops, decl.operations()...)
	}
	if len(ops) == 0 {
		return nil, &DeclarationError{Site: site, Err: errors.New("no operations declared")}
	}

	errs := validation.Errors{}
	for i, op := range ops {
		op.CacheNames = newOperation(op.Kind, op.CacheNames).CacheNames
		ops[i] = op
		if err := op.Validate(); err != nil {
			errs[fmt.Sprintf("operations[%d]", i)] = err
		}
	}
	if err := errs.Filter(); err != nil {
		return nil, &DeclarationError{Site: site, Err: err}
	}

	if err := validateSync(ops); err != nil {
		return nil, &DeclarationError{Site: site, Err: err}
	}

	compiled := make([]*CompiledOperation, len(ops))
	for i, op := range ops {
		c, err := compile(op)
		if err != nil {
			return nil, &DeclarationError{Site: site, Err: errors.Wrapf(err, "operations[%d]", i)}
		}
		compiled[i] = c
	}

	return compiled, nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(site string, decls ...Declaration) {
	if err := r.Register(site, decls...); err != nil {
		panic(err)
	}
}

// Operations returns the compiled operations of site in declaration order,
// or nil when the site has none.
func (r *Registry) Operations(site string) []*CompiledOperation {
	ops, _ := r.sites.Load(site)
	return ops
}

// Sites returns every registered site, sorted.
func (r *Registry) Sites() []string {
	sites := make([]string, 0, r.sites.Size())
	r.sites.Range(func(site string, _ []*CompiledOperation) bool {
		sites = append(sites, site)
		return true
	})
	sort.Strings(sites)
	return sites
}

// validateSync enforces the restrictions on synchronized cacheables: the site
// holds only that operation, on a single cache, without unless.
func validateSync(ops []Operation) error {
	for _, op := range ops {
		if !op.Sync {
			continue
		}
		if len(ops) > 1 {
			return errors.New("sync cannot be combined with other operations")
		}
		if len(op.CacheNames) != 1 {
			return errors.New("sync requires exactly one cache")
		}
		if op.Unless != "" {
			return errors.New("sync cannot be combined with unless")
		}
	}
	return nil
}

func compile(op Operation) (*CompiledOperation, error) {
	c := &CompiledOperation{Operation: op}
	// the result is unknown when these expressions run
	noResult := op.Kind == KindCacheable || (op.Kind == KindEvict && op.BeforeInvocation)

	var err error
	if c.key, err = parseOptional("key", op.Key, noResult); err != nil {
		return nil, err
	}
	if c.condition, err = parseOptional("condition", op.Condition, noResult); err != nil {
		return nil, err
	}
	if c.unless, err = parseOptional("unless", op.Unless, false); err != nil {
		return nil, err
	}
	return c, nil
}

func parseOptional(field, src string, noResult bool) (*expression.Expression, error) {
	if src == "" {
		return nil, nil
	}
	expr, err := expression.Parse(src)
	if err != nil {
		return nil, errors.Wrap(err, field)
	}
	if noResult && expr.References(resultVar) {
		return nil, errors.Wrapf(expression.ErrResultUnavailable, "%s %q", field, src)
	}
	return expr, nil
}
