package memory

// cloner is satisfied by every model pointer type; the store never hands out
// or keeps a pointer the caller also holds.
type cloner[V any] interface {
	Clone() V
}

// table keeps rows in insertion order so listings are stable.
type table[K comparable, V cloner[V]] struct {
	rows  map[K]V
	order []K
}

func newTable[K comparable, V cloner[V]]() *table[K, V] {
	return &table[K, V]{rows: make(map[K]V)}
}

// overlay stages writes against a table until commit.
type overlay[K comparable, V cloner[V]] struct {
	base  *table[K, V]
	dirty map[K]V
	added []K
}

func newOverlay[K comparable, V cloner[V]](base *table[K, V]) *overlay[K, V] {
	return &overlay[K, V]{base: base, dirty: make(map[K]V)}
}

func (o *overlay[K, V]) lookup(k K) (V, bool) {
	if v, ok := o.dirty[k]; ok {
		return v, true
	}
	v, ok := o.base.rows[k]
	return v, ok
}

func (o *overlay[K, V]) get(k K) (V, bool) {
	v, ok := o.lookup(k)
	if !ok {
		return v, false
	}
	return v.Clone(), true
}

func (o *overlay[K, V]) has(k K) bool {
	_, ok := o.lookup(k)
	return ok
}

func (o *overlay[K, V]) put(k K, v V) {
	if !o.has(k) {
		o.added = append(o.added, k)
	}
	o.dirty[k] = v.Clone()
}

// each visits committed rows then staged inserts, in insertion order.
func (o *overlay[K, V]) each(fn func(V)) {
	for _, k := range o.base.order {
		v, _ := o.lookup(k)
		fn(v)
	}
	for _, k := range o.added {
		fn(o.dirty[k])
	}
}

func (o *overlay[K, V]) filter(keep func(V) bool) []V {
	out := make([]V, 0)
	o.each(func(v V) {
		if keep(v) {
			out = append(out, v.Clone())
		}
	})
	return out
}

func (o *overlay[K, V]) commit() {
	for k, v := range o.dirty {
		o.base.rows[k] = v
	}
	o.base.order = append(o.base.order, o.added...)
}
