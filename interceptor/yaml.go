package interceptor

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// OperationSpec is the YAML form of an Operation. Exactly one of Cacheable,
// Put or Evict must be set; it lists the cache names.
type OperationSpec struct {
	Cacheable        []string `yaml:"cacheable,omitempty"`
	Put              []string `yaml:"put,omitempty"`
	Evict            []string `yaml:"evict,omitempty"`
	Key              string   `yaml:"key,omitempty"`
	Condition        string   `yaml:"condition,omitempty"`
	Unless           string   `yaml:"unless,omitempty"`
	AllEntries       bool     `yaml:"all_entries,omitempty"`
	BeforeInvocation bool     `yaml:"before_invocation,omitempty"`
	Sync             bool     `yaml:"sync,omitempty"`
}

// Document is a YAML file of call-site declarations:
//
//	sites:
//	  Books.find:
//	    - cacheable: [books]
//	      key: "#isbn"
type Document struct {
	Sites map[string][]OperationSpec `yaml:"sites"`
}

// Operation converts the spec into an Operation.
func (s OperationSpec) Operation() (Operation, error) {
	var op Operation
	set := 0
	if len(s.Cacheable) > 0 {
		op = Cacheable(s.Cacheable...)
		set++
	}
	if len(s.Put) > 0 {
		op = Put(s.Put...)
		set++
	}
	if len(s.Evict) > 0 {
		op = Evict(s.Evict...)
		set++
	}
	if set != 1 {
		return Operation{}, errors.New("exactly one of cacheable, put or evict must list cache names")
	}

	op.Key = s.Key
	op.Condition = s.Condition
	op.Unless = s.Unless
	op.AllEntries = s.AllEntries
	op.BeforeInvocation = s.BeforeInvocation
	op.Sync = s.Sync
	return op, nil
}

// Declarations converts every site of the document into a Composite.
func (d Document) Declarations() (map[string]Composite, error) {
	out := make(map[string]Composite, len(d.Sites))
	for site, specs := range d.Sites {
		ops := make([]Operation, 0, len(specs))
		for i, spec := range specs {
			op, err := spec.Operation()
			if err != nil {
				return nil, &DeclarationError{Site: site, Err: errors.Wrapf(err, "operations[%d]", i)}
			}
			ops = append(ops, op)
		}
		out[site] = Caching(ops...)
	}
	return out, nil
}

// LoadDeclarations decodes a YAML Document from r.
func LoadDeclarations(r io.Reader) (map[string]Composite, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decode cache declarations")
	}
	return doc.Declarations()
}

// RegisterDocument registers every site of doc.
func (r *Registry) RegisterDocument(doc Document) error {
	decls, err := doc.Declarations()
	if err != nil {
		return err
	}
	return r.registerAll(decls)
}

// LoadYAML reads a YAML Document from rd and registers its sites.
func (r *Registry) LoadYAML(rd io.Reader) error {
	decls, err := LoadDeclarations(rd)
	if err != nil {
		return err
	}
	return r.registerAll(decls)
}

func (r *Registry) registerAll(decls map[string]Composite) error {
	all := make(map[string]Declaration, len(decls))
	for site, c := range decls {
		all[site] = c
	}
	return r.RegisterAll(all)
}
