package model

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var ErrUnknownDataType = errors.New("model: unknown data type")

// DataType is the closed set of wire argument types. The zero value means the
// schema did not set a type.
type DataType uint8

const (
	Unset DataType = iota
	Int
	Uint
	Fixed
	String
	Array
	Fd
	Object
	NewId
)

// DataTypes lists every valid type in declaration order.
var DataTypes = []DataType{Int, Uint, Fixed, String, Array, Fd, Object, NewId}

var dataTypeNames = map[DataType]string{
	Int:    "int",
	Uint:   "uint",
	Fixed:  "fixed",
	String: "string",
	Array:  "array",
	Fd:     "fd",
	Object: "object",
	NewId:  "new_id",
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	if t == Unset {
		return "unset"
	}
	return fmt.Sprintf("DataType(%d)", uint8(t))
}

func (t DataType) Valid() bool {
	_, ok := dataTypeNames[t]
	return ok
}

// ParseDataType maps a schema type name to its DataType.
func ParseDataType(s string) (DataType, error) {
	for t, name := range dataTypeNames {
		if name == s {
			return t, nil
		}
	}
	return Unset, fmt.Errorf("%w: %q", ErrUnknownDataType, s)
}

// Nullable reports whether allow-null has meaning for the type.
func (t DataType) Nullable() bool {
	return t == String || t == Object
}

// Pinnable reports whether an interface name may be attached to the type.
func (t DataType) Pinnable() bool {
	return t == Object || t == NewId
}

func (t DataType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataType, t)
	}
	return []byte(t.String()), nil
}

func (t *DataType) UnmarshalText(b []byte) error {
	parsed, err := ParseDataType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t *DataType) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected a scalar", ErrUnknownDataType, value.Line)
	}
	return t.UnmarshalText([]byte(value.Value))
}
