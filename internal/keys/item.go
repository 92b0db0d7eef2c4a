package keys

import (
	"bytes"
	"encoding/json"

	"github.com/mvp-joe/harvester/internal/source"
)

// ContextSeparator joins a key and its context into a composite identity.
const ContextSeparator = "\u0004"

// CompositeKey returns the catalog identity of a key/context pair.
func CompositeKey(key string, context *string) string {
	if context == nil {
		return key
	}
	return key + ContextSeparator + *context
}

// Location is where a key was found.
type Location struct {
	source.Span
	// Src is the file path relative to the collection root, when known.
	Src string `json:"src,omitempty"`
}

// KeyItem is one occurrence of a translation key.
type KeyItem struct {
	Key      string   `json:"key"`
	Context  *string  `json:"context"`
	Location Location `json:"location"`
}

// ID returns the composite identity of the item.
func (k KeyItem) ID() string {
	return CompositeKey(k.Key, k.Context)
}

// Map groups key items by composite identity. Identities keep the order
// in which they were first seen; items keep discovery order and are never
// deduplicated.
type Map struct {
	order []string
	items map[string][]KeyItem
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{items: make(map[string][]KeyItem)}
}

// Add appends an item under its composite identity.
func (m *Map) Add(item KeyItem) {
	id := item.ID()
	if _, ok := m.items[id]; !ok {
		m.order = append(m.order, id)
	}
	m.items[id] = append(m.items[id], item)
}

// Merge appends every item of other, in other's order.
func (m *Map) Merge(other *Map) {
	if other == nil {
		return
	}
	for _, id := range other.order {
		for _, item := range other.items[id] {
			m.Add(item)
		}
	}
}

// Get returns the items filed under a composite identity.
func (m *Map) Get(id string) []KeyItem {
	return m.items[id]
}

// IDs returns the composite identities in discovery order.
func (m *Map) IDs() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of composite identities.
func (m *Map) Len() int {
	return len(m.order)
}

// Count returns the total number of items.
func (m *Map) Count() int {
	n := 0
	for _, items := range m.items {
		n += len(items)
	}
	return n
}

// Each calls fn for every identity in discovery order.
func (m *Map) Each(fn func(id string, items []KeyItem)) {
	for _, id := range m.order {
		fn(id, m.items[id])
	}
}

// MarshalJSON renders the map as an object whose keys keep discovery order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range m.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.items[id])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
