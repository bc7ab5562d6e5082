package format

import "fmt"

// FieldKind is the inferred type of one conversion in a format string.
type FieldKind int

const (
	Unknown FieldKind = iota
	Integer
	Float
	String
	Character
)

var kindNames = map[FieldKind]string{
	Unknown:   "unknown",
	Integer:   "integer",
	Float:     "float",
	String:    "string",
	Character: "character",
}

func (k FieldKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Unknown]
}

// MarshalText encodes the kind by name.
func (k FieldKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *FieldKind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown field kind %q", string(b))
}
