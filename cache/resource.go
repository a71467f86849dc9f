package cache

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Resource is one cached entity.
//
// Relationships maps a target type to the ids this resource points at; each
// listed id is one directed edge.
type Resource struct {
	ID            string
	Attributes    map[string]any
	Relationships map[string][]string
}

// RelationshipCount returns the number of edges leaving r.
func (r Resource) RelationshipCount() int {
	n := 0
	for _, ids := range r.Relationships {
		n += len(ids)
	}
	return n
}

// filtered returns a copy of r holding only relationships whose target type
// is in filter (all of them when filter is empty), and the number of edges kept.
func (r Resource) filtered(filter []string) (Resource, int) {
	out := Resource{ID: r.ID, Attributes: make(map[string]any, len(r.Attributes))}
	for k, v := range r.Attributes {
		out.Attributes[k] = v
	}
	edges := 0
	for typ, ids := range r.Relationships {
		if len(filter) > 0 && !contains(filter, typ) {
			continue
		}
		if out.Relationships == nil {
			out.Relationships = make(map[string][]string)
		}
		out.Relationships[typ] = append([]string(nil), ids...)
		edges += len(ids)
	}
	return out, edges
}

// clone deep-copies the maps and slices of r. Attribute values are shared.
func (r Resource) clone() Resource {
	c, _ := r.filtered(nil)
	return c
}

// digest hashes the content of r. Strings are length-prefixed and values
// carry their dynamic type, so distinct contents never render the same bytes.
func (r Resource) digest() uint64 {
	d := xxhash.New()
	writeString(d, r.ID)
	writeValue(d, r.Attributes)

	types := make([]string, 0, len(r.Relationships))
	for typ := range r.Relationships {
		types = append(types, typ)
	}
	sort.Strings(types)
	writeLen(d, len(types))
	for _, typ := range types {
		ids := append([]string(nil), r.Relationships[typ]...)
		sort.Strings(ids)
		writeString(d, typ)
		writeValue(d, ids)
	}
	return d.Sum64()
}

func writeLen(d *xxhash.Digest, n int) {
	var buf [binary.MaxVarintLen64]byte
	_, _ = d.Write(binary.AppendUvarint(buf[:0], uint64(n)))
}

func writeString(d *xxhash.Digest, s string) {
	writeLen(d, len(s))
	_, _ = d.WriteString(s)
}

// writeValue feeds v to d as a tagged encoding. Maps are walked in key order.
func writeValue(d *xxhash.Digest, v any) {
	switch x := v.(type) {
	case nil:
		_, _ = d.Write([]byte{'n'})
	case string:
		_, _ = d.Write([]byte{'s'})
		writeString(d, x)
	case []string:
		_, _ = d.Write([]byte{'l'})
		writeLen(d, len(x))
		for _, s := range x {
			writeString(d, s)
		}
	case []any:
		_, _ = d.Write([]byte{'a'})
		writeLen(d, len(x))
		for _, e := range x {
			writeValue(d, e)
		}
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		_, _ = d.Write([]byte{'m'})
		writeLen(d, len(keys))
		for _, k := range keys {
			writeString(d, k)
			writeValue(d, x[k])
		}
	default:
		// JSON follows pointers and sorts map keys; %#v covers what JSON rejects.
		writeString(d, fmt.Sprintf("%T", x))
		if b, err := json.Marshal(x); err == nil {
			_, _ = d.Write([]byte{'j'})
			writeLen(d, len(b))
			_, _ = d.Write(b)
			return
		}
		_, _ = d.Write([]byte{'f'})
		writeString(d, fmt.Sprintf("%#v", x))
	}
}

// droppedEdges counts edges present in old but not in updated.
func droppedEdges(old, updated Resource) int {
	n := 0
	for typ, ids := range old.Relationships {
		keep := make(map[string]struct{}, len(updated.Relationships[typ]))
		for _, id := range updated.Relationships[typ] {
			keep[id] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := keep[id]; !ok {
				n++
			}
		}
	}
	return n
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
