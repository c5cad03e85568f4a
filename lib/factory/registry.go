package factory

import (
	"fmt"
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/ValentinKolb/dLoad/lib/random"
	"sort"
)

// Options holds the parameters a factory may need
type Options struct {
	SamplePath     string
	SampleEncoding string
	Source         ISampleSource // nil means FileSampleSource
}

// Registry maps factory names to constructors
var Registry = map[string]func(rand *random.Allocator, opts Options) IDocumentFactory{
	"invoice": func(rand *random.Allocator, _ Options) IDocumentFactory {
		return NewInvoiceFactory(rand)
	},
	"sample": func(rand *random.Allocator, opts Options) IDocumentFactory {
		return NewSampleMirrorFactory(rand, opts.Source, opts.SamplePath, opts.SampleEncoding)
	},
}

// New returns the factory registered under name
func New(name string, rand *random.Allocator, opts Options) (IDocumentFactory, error) {
	constructor, exists := Registry[name]
	if !exists {
		return nil, common.NewError(common.ErrCConfiguration, "unknown factory %q (available: %v)", name, Names())
	}
	if rand == nil {
		return nil, common.NewError(common.ErrCConfiguration, "factory %q needs an allocator", name)
	}
	return constructor(rand, opts), nil
}

// Names returns all registered factory names, sorted
func Names() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns a one-line description of a factory for help texts
func Describe(name string) string {
	switch name {
	case "invoice":
		return "generates invoices with 1-14 line items and consistent totals"
	case "sample":
		return "mirrors the structure of a JSON or YAML sample with random values"
	default:
		return fmt.Sprintf("unknown factory %q", name)
	}
}
