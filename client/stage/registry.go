package stage

import (
	"maps"
	"slices"
)

// Registry maps a key (content-encoding token, media type or charset) to a
// stage constructor. A missing key means the stage is not used.
type Registry interface {
	Lookup(key string) (Constructor, bool)
}

// Registries groups the lookups a response pipeline is assembled from.
type Registries struct {
	Decompressors Registry
	Parsers       Registry
	Decoders      Registry
}

// Defaults returns the builtin registries.
func Defaults() Registries {
	return Registries{
		Decompressors: NewRegistry(map[string]Constructor{
			"gzip":      Gzip,
			"x-gzip":    Gzip,
			"deflate":   Deflate,
			"x-deflate": Deflate,
			"br":        Brotli,
		}),
		Parsers: NewRegistry(map[string]Constructor{
			"application/json":   JSON,
			"text/javascript":    JSON,
			"application/yaml":   YAML,
			"application/x-yaml": YAML,
			"text/yaml":          YAML,
		}),
		Decoders: Charsets(),
	}
}

// table is an immutable Registry backed by a private copy of its entries.
type table struct {
	entries map[string]Constructor
}

// NewRegistry returns a Registry holding a copy of entries. Later changes to
// entries are not observed.
func NewRegistry(entries map[string]Constructor) Registry {
	return table{entries: maps.Clone(entries)}
}

func (t table) Lookup(key string) (Constructor, bool) {
	c, ok := t.entries[key]
	return c, ok
}

// Keys returns the registered keys in sorted order.
func (t table) Keys() []string {
	return slices.Sorted(maps.Keys(t.entries))
}

// Extend returns a Registry that resolves entries first and falls back to base.
func Extend(base Registry, entries map[string]Constructor) Registry {
	return chain{head: NewRegistry(entries), tail: base}
}

type chain struct {
	head Registry
	tail Registry
}

func (c chain) Lookup(key string) (Constructor, bool) {
	if ctor, ok := c.head.Lookup(key); ok {
		return ctor, true
	}
	if c.tail == nil {
		return nil, false
	}

	return c.tail.Lookup(key)
}
