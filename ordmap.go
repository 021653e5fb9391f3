package sesh

import "sort"

// Map is an ordered mapping from string keys to Value. Keys are unique;
// Keys/Values/iteration always walk them in sorted order, matching the
// design's requirement that Map serialization be deterministic.
type Map struct {
	m map[string]Value
}

// NewMap returns an empty Map ready for use.
func NewMap() *Map {
	return &Map{m: make(map[string]Value)}
}

func (m *Map) ensure() {
	if m.m == nil {
		m.m = make(map[string]Value)
	}
}

// Len returns the number of entries in the map.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.m)
}

// Get returns the value stored under key, and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil || m.m == nil {
		return Value{}, false
	}
	v, ok := m.m[key]
	return v, ok
}

// Insert stores value under key, overwriting any existing entry, and
// returns the previous value if there was one.
func (m *Map) Insert(key string, value Value) (Value, bool) {
	m.ensure()
	prev, had := m.m[key]
	m.m[key] = value
	return prev, had
}

// Remove deletes key from the map and returns the removed value, if any.
func (m *Map) Remove(key string) (Value, bool) {
	if m == nil || m.m == nil {
		return Value{}, false
	}
	v, ok := m.m[key]
	if ok {
		delete(m.m, key)
	}
	return v, ok
}

// Retain keeps only the entries for which keep returns true.
func (m *Map) Retain(keep func(key string, value Value) bool) {
	if m == nil || m.m == nil {
		return
	}
	for k, v := range m.m {
		if !keep(k, v) {
			delete(m.m, k)
		}
	}
}

// Append copies every entry of other into m, overwriting conflicts.
func (m *Map) Append(other *Map) {
	if other == nil {
		return
	}
	m.ensure()
	for _, k := range other.Keys() {
		v, _ := other.Get(k)
		m.m[k] = v
	}
}

// Keys returns the map's keys in sorted order.
func (m *Map) Keys() []string {
	if m == nil || len(m.m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m.m))
	for k := range m.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns the map's values, ordered by their sorted keys.
func (m *Map) Values() []Value {
	keys := m.Keys()
	if keys == nil {
		return nil
	}
	values := make([]Value, len(keys))
	for i, k := range keys {
		values[i] = m.m[k]
	}
	return values
}

// Entry is a single key/value pair, used by Iter.
type Entry struct {
	Key   string
	Value Value
}

// Iter returns every entry in sorted-key order.
func (m *Map) Iter() []Entry {
	keys := m.Keys()
	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i] = Entry{Key: k, Value: m.m[k]}
	}
	return entries
}

// Clone returns a deep-enough copy of m: the returned Map has its own
// backing storage, though the Values it holds share their own internal
// slices/maps with m's (Value itself is copied by value at the top level).
func (m *Map) Clone() *Map {
	out := NewMap()
	if m == nil {
		return out
	}
	for k, v := range m.m {
		out.m[k] = v
	}
	return out
}

// MapEntry is a handle for in-place manipulation of a single map slot,
// obtained from Map.Entry. It tracks whether the slot was occupied at
// the time it was obtained, the way a vacant/occupied entry view would.
type MapEntry struct {
	m        *Map
	key      string
	occupied bool
}

// Entry returns a handle for in-place manipulation of the slot at key,
// completing the ordered-map API alongside Insert/Get/Remove.
func (m *Map) Entry(key string) *MapEntry {
	m.ensure()
	_, occupied := m.m[key]
	return &MapEntry{m: m, key: key, occupied: occupied}
}

// Key returns the key this entry was obtained for.
func (e *MapEntry) Key() string { return e.key }

// Occupied reports whether the slot currently holds a value.
func (e *MapEntry) Occupied() bool { return e.occupied }

// OrInsert ensures the slot holds a value, inserting def if it was vacant,
// and returns the value now stored there.
func (e *MapEntry) OrInsert(def Value) Value {
	if !e.occupied {
		e.m.m[e.key] = def
		e.occupied = true
	}
	return e.m.m[e.key]
}

// OrInsertWith is like OrInsert, except def is only evaluated if the slot
// was vacant.
func (e *MapEntry) OrInsertWith(def func() Value) Value {
	if !e.occupied {
		e.m.m[e.key] = def()
		e.occupied = true
	}
	return e.m.m[e.key]
}

// AndModify applies f to the entry's value in place if the slot was
// occupied, leaving a vacant slot untouched. It returns e so OrInsert/
// OrInsertWith can chain after it, matching the "modify then insert
// default" idiom.
func (e *MapEntry) AndModify(f func(v *Value)) *MapEntry {
	if e.occupied {
		v := e.m.m[e.key]
		f(&v)
		e.m.m[e.key] = v
	}
	return e
}

// Equal reports whether m and other contain the same keys mapped to equal
// values.
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	for k, v := range m.m {
		ov, ok := other.m[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
