package compiler

import (
	"fmt"
	"strings"
)

// StaticType is the kind of a LanguageType.
type StaticType int

const (
	TypeVoid StaticType = iota
	TypeInteger
	TypeBoolean
	TypeStruct
)

// LanguageType is the resolved type of an expression or variable.
// Struct is set only for TypeStruct.
type LanguageType struct {
	Static StaticType
	Struct *StructDef
}

var (
	Void = LanguageType{Static: TypeVoid}
	Int  = LanguageType{Static: TypeInteger}
	Bool = LanguageType{Static: TypeBoolean}
)

// Equal compares types structurally. Two struct types are equal when they
// share a name and an identical field layout.
func (t LanguageType) Equal(o LanguageType) bool {
	if t.Static != o.Static {
		return false
	}
	if t.Static != TypeStruct {
		return true
	}
	if t.Struct == o.Struct {
		return true
	}
	if t.Struct == nil || o.Struct == nil {
		return false
	}
	if t.Struct.Name != o.Struct.Name || len(t.Struct.Fields) != len(o.Struct.Fields) {
		return false
	}
	for i, f := range t.Struct.Fields {
		g := o.Struct.Fields[i]
		if f.Name != g.Name || f.Offset != g.Offset || !f.Type.Equal(g.Type) {
			return false
		}
	}
	return true
}

// IsScalar reports whether values of t fit in a register.
func (t LanguageType) IsScalar() bool {
	return t.Static == TypeInteger || t.Static == TypeBoolean
}

// Size returns the number of memory words a value of t occupies.
func (t LanguageType) Size() int {
	switch t.Static {
	case TypeInteger, TypeBoolean:
		return 1
	case TypeStruct:
		if t.Struct == nil {
			return 0
		}
		return t.Struct.Size
	}
	return 0
}

func (t LanguageType) String() string {
	switch t.Static {
	case TypeVoid:
		return "void"
	case TypeInteger:
		return "int"
	case TypeBoolean:
		return "bool"
	case TypeStruct:
		if t.Struct == nil {
			return "struct ?"
		}
		return t.Struct.Name
	}
	return fmt.Sprintf("StaticType(%d)", int(t.Static))
}

type FieldDef struct {
	Name   string
	Offset int
	Type   LanguageType
}

// StructDef is a declared struct layout. Fields are laid out in declaration
// order, one after another.
type StructDef struct {
	Name   string
	Fields []FieldDef
	Size   int
}

func (s *StructDef) Field(name string) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

func (s *StructDef) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = fmt.Sprintf("%s:%s@%d", f.Name, f.Type, f.Offset)
	}
	return fmt.Sprintf("struct %s (Size: %d) {%s}", s.Name, s.Size, strings.Join(parts, ", "))
}
