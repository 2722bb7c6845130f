package table

import (
	"reflect"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// valueComparer orders accessor values for columns without a custom Compare.
//
// A collate.Collator is not safe for concurrent use, so each sort builds its
// own comparer.
type valueComparer struct {
	coll *collate.Collator
}

func newValueComparer(locale language.Tag) *valueComparer {
	return &valueComparer{coll: collate.New(locale)}
}

// compare returns -1, 0 or 1.
//
// Rules, in order: two nil values are equal; nil sorts before any value; two
// strings use locale collation; numbers, times and bools use their natural
// order; anything else is treated as equal.
func (c *valueComparer) compare(a, b any) int {
	aNil, bNil := isNil(a), isNil(b)
	switch {
	case aNil && bNil:
		return 0
	case aNil:
		return -1
	case bNil:
		return 1
	}

	a, b = deref(a), deref(b)

	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
		return 0
	}

	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	ak, bk := kindClass(av.Kind()), kindClass(bv.Kind())
	if ak != bk {
		if ak.numeric() && bk.numeric() {
			return cmpOrdered(toFloat(av), toFloat(bv))
		}
		return 0
	}

	switch ak {
	case classString:
		as, bs := av.String(), bv.String()
		if as == bs {
			return 0
		}
		return c.coll.CompareString(as, bs)
	case classInt:
		return cmpOrdered(av.Int(), bv.Int())
	case classUint:
		return cmpOrdered(av.Uint(), bv.Uint())
	case classFloat:
		return cmpOrdered(av.Float(), bv.Float())
	case classBool:
		return cmpOrdered(boolRank(av.Bool()), boolRank(bv.Bool()))
	}
	return 0
}

type valueClass int

const (
	classOther valueClass = iota
	classString
	classInt
	classUint
	classFloat
	classBool
)

func kindClass(k reflect.Kind) valueClass {
	switch k {
	case reflect.String:
		return classString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return classInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return classUint
	case reflect.Float32, reflect.Float64:
		return classFloat
	case reflect.Bool:
		return classBool
	}
	return classOther
}

func (c valueClass) numeric() bool {
	return c == classInt || c == classUint || c == classFloat
}

func toFloat(v reflect.Value) float64 {
	switch kindClass(v.Kind()) {
	case classInt:
		return float64(v.Int())
	case classUint:
		return float64(v.Uint())
	}
	return v.Float()
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func cmpOrdered[N int | int64 | uint64 | float64](a, b N) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
