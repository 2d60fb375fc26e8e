// Package quat models the quaternion group Q8 = {1, -1, i, j, k, -i, -j, -k}
// as it appears in Frobenius data: eight numbered elements partitioned into
// the five conjugacy classes {1}, {-1}, {+-i}, {+-j}, {+-k}.
package quat

import "fmt"

// Element is a Q8 element index. The numbering matches the persisted data
// format: 0..7 for 1, -1, i, j, k, -i, -j, -k.
type Element uint8

const (
	One Element = iota
	MinusOne
	I
	J
	K
	MinusI
	MinusJ
	MinusK

	NumElements = 8
)

var elementNames = [NumElements]string{"1", "-1", "i", "j", "k", "-i", "-j", "-k"}

// longNames are the symbolic names used in the classification JSON files.
var longNames = [NumElements]string{
	"identity (1)",
	"minus_one (-1)",
	"i",
	"j",
	"k",
	"minus_i (-i)",
	"minus_j (-j)",
	"minus_k (-k)",
}

// Valid reports whether e is one of the eight group elements.
func (e Element) Valid() bool { return e < NumElements }

func (e Element) String() string {
	if !e.Valid() {
		return fmt.Sprintf("Element(%d)", uint8(e))
	}
	return elementNames[e]
}

// GroupKey returns the element's key in the persisted group_structure block
// ("g0".."g7").
func (e Element) GroupKey() string { return fmt.Sprintf("g%d", uint8(e)) }

// LongName returns the element's symbolic name as persisted in data files.
func (e Element) LongName() string {
	if !e.Valid() {
		return ""
	}
	return longNames[e]
}

// ParseElement checks a stored integer label and converts it to an Element.
func ParseElement(v int) (Element, error) {
	if v < 0 || v >= NumElements {
		return 0, fmt.Errorf("quat: label %d outside 0..%d", v, NumElements-1)
	}
	return Element(v), nil
}

// Class is one of the five conjugacy classes of Q8.
type Class uint8

const (
	ClassOne Class = iota
	ClassMinusOne
	ClassI
	ClassJ
	ClassK

	NumClasses = 5
)

var classNames = [NumClasses]string{"1", "-1", "i", "j", "k"}

var classSizes = [NumClasses]int{1, 1, 2, 2, 2}

func (c Class) String() string {
	if c >= NumClasses {
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
	return classNames[c]
}

// Size returns the number of group elements in the class.
func (c Class) Size() int {
	if c >= NumClasses {
		return 0
	}
	return classSizes[c]
}

// OrderFour reports whether the class consists of order-4 elements.
func (c Class) OrderFour() bool { return c == ClassI || c == ClassJ || c == ClassK }

// Representative returns the canonical element of the class (the positive
// one for the order-4 classes).
func (c Class) Representative() Element {
	switch c {
	case ClassOne:
		return One
	case ClassMinusOne:
		return MinusOne
	case ClassI:
		return I
	case ClassJ:
		return J
	default:
		return K
	}
}

// Elements returns the members of the class in label order.
func (c Class) Elements() []Element {
	switch c {
	case ClassOne:
		return []Element{One}
	case ClassMinusOne:
		return []Element{MinusOne}
	case ClassI:
		return []Element{I, MinusI}
	case ClassJ:
		return []Element{J, MinusJ}
	default:
		return []Element{K, MinusK}
	}
}

// Class returns the conjugacy class of e.
func (e Element) Class() Class {
	switch e {
	case One:
		return ClassOne
	case MinusOne:
		return ClassMinusOne
	case I, MinusI:
		return ClassI
	case J, MinusJ:
		return ClassJ
	default:
		return ClassK
	}
}

// Classes returns the five conjugacy classes in curve order (S1..S5).
func Classes() [NumClasses]Class {
	return [NumClasses]Class{ClassOne, ClassMinusOne, ClassI, ClassJ, ClassK}
}

// GroupStructure returns the element naming block persisted alongside every
// classification file, keyed "g0".."g7".
func GroupStructure() map[string]string {
	out := make(map[string]string, NumElements)
	for e := Element(0); e < NumElements; e++ {
		out[e.GroupKey()] = e.LongName()
	}
	return out
}

// ParseElementName resolves a short or long element name.
func ParseElementName(s string) (Element, error) {
	for e := Element(0); e < NumElements; e++ {
		if s == elementNames[e] || s == longNames[e] {
			return e, nil
		}
	}
	return 0, fmt.Errorf("quat: unknown element name %q", s)
}

// MarshalJSON encodes the element as its short name ("-i").
func (e Element) MarshalJSON() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("quat: invalid element %d", uint8(e))
	}
	return []byte(`"` + elementNames[e] + `"`), nil
}

// UnmarshalJSON accepts a short name, a long name, or a bare index.
func (e *Element) UnmarshalJSON(b []byte) error {
	if len(b) >= 2 && b[0] == '"' {
		v, err := ParseElementName(string(b[1 : len(b)-1]))
		if err != nil {
			return err
		}
		*e = v
		return nil
	}
	var idx int
	if _, err := fmt.Sscanf(string(b), "%d", &idx); err != nil {
		return fmt.Errorf("quat: element literal %s: %w", b, err)
	}
	v, err := ParseElement(idx)
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// MarshalJSON encodes the class as its name ("k").
func (c Class) MarshalJSON() ([]byte, error) {
	if c >= NumClasses {
		return nil, fmt.Errorf("quat: invalid class %d", uint8(c))
	}
	return []byte(`"` + classNames[c] + `"`), nil
}

// UnmarshalJSON accepts a class name.
func (c *Class) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' {
		return fmt.Errorf("quat: class literal %s: want a quoted name", b)
	}
	s := string(b[1 : len(b)-1])
	for k := Class(0); k < NumClasses; k++ {
		if s == classNames[k] {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("quat: unknown class name %q", s)
}
