package core

import "reflect"

// Filter decides whether a record should be processed. Both loggers
// and handlers hold filter chains.
type Filter interface {
	// Allow reports whether the record passes the filter.
	Allow(record *Record) bool
}

// FilterFunc adapts a plain function to the Filter interface.
type FilterFunc func(record *Record) bool

// Allow implements Filter.
func (f FilterFunc) Allow(record *Record) bool {
	return f(record)
}

// RunFilters reports whether the record passes every filter in the
// chain. The chain short-circuits on the first rejection; an empty
// chain passes.
func RunFilters(filters []Filter, record *Record) bool {
	for _, f := range filters {
		if !f.Allow(record) {
			return false
		}
	}
	return true
}

// SameFilter reports whether two filters are the same registration,
// for removal. Func-typed filters such as FilterFunc are not
// comparable with ==, so they compare by code pointer; everything
// else compares by value when its type allows it.
func SameFilter(a, b Filter) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	if !ta.Comparable() {
		return false
	}
	return a == b
}

// NameFilter passes records originating from the named logger or any
// of its descendants, mirroring the conventional logger-name filter.
type NameFilter struct {
	Name string
}

// Allow implements Filter.
func (f NameFilter) Allow(record *Record) bool {
	if f.Name == "" || record.Name == f.Name {
		return true
	}
	return len(record.Name) > len(f.Name) &&
		record.Name[len(f.Name)] == '.' &&
		record.Name[:len(f.Name)] == f.Name
}
