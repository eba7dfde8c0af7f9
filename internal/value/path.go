package value

import "strings"

// Path is a dot-separated field path using "[*]" to mark array-element
// descent, e.g. "weather[*].description".
type Path string

// Join appends a child segment to a path, inserting the separating dot.
func (p Path) Join(segment string) Path {
	if p == "" {
		return Path(segment)
	}
	return Path(string(p) + "." + segment)
}

// JoinArray appends the "[*]" array-descent marker to a path.
func (p Path) JoinArray() Path {
	return Path(string(p) + "[*]")
}

// Segments splits a Path into its dotted components, keeping "[*]" attached
// to the segment it follows (e.g. "weather[*]" stays one segment).
func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), ".")
}

// Get resolves a dotted path against a Value, descending into arrays at
// every "[*]" marker by visiting the first element (callers that need every
// element use GetAll). Returns false if any segment is absent or the
// traversal hits a non-object/non-array where a field or index was
// expected.
func Get(v Value, path Path) (Value, bool) {
	cur := v
	for _, seg := range path.Segments() {
		field, isArray := splitArrayMarker(seg)
		fv, ok := cur.Field(field)
		if !ok {
			return Value{}, false
		}
		cur = fv
		if isArray {
			items, ok := cur.AsArray()
			if !ok || len(items) == 0 {
				return Value{}, false
			}
			cur = items[0]
		}
	}
	return cur, true
}

// GetAll resolves a dotted path, returning one Value per element when the
// path descends through an array marker, flattening nested array descents
// into a single list. Used by pattern detectors that must check a
// predicate across every element, not just the first.
func GetAll(v Value, path Path) []Value {
	segs := path.Segments()
	return getAll([]Value{v}, segs)
}

func getAll(cur []Value, segs []string) []Value {
	if len(segs) == 0 {
		return cur
	}
	seg := segs[0]
	field, isArray := splitArrayMarker(seg)

	var next []Value
	for _, c := range cur {
		fv, ok := c.Field(field)
		if !ok {
			continue
		}
		if isArray {
			items, ok := fv.AsArray()
			if !ok {
				continue
			}
			next = append(next, items...)
		} else {
			next = append(next, fv)
		}
	}
	return getAll(next, segs[1:])
}

func splitArrayMarker(seg string) (field string, isArray bool) {
	const marker = "[*]"
	if strings.HasSuffix(seg, marker) {
		return strings.TrimSuffix(seg, marker), true
	}
	return seg, false
}
