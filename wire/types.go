package wire

import (
	"math"
	"strconv"
)

// Id is a protocol object id. Zero is the null object.
type Id uint32

// Fixed is a signed 24.8 fixed-point number.
type Fixed int32

// FixedFromInt converts an integer to fixed-point.
func FixedFromInt(v int32) Fixed {
	return Fixed(v << 8)
}

// FixedFromFloat converts a float to the nearest fixed-point value.
func FixedFromFloat(v float64) Fixed {
	return Fixed(int32(math.Round(v * 256)))
}

// Int truncates toward negative infinity.
func (f Fixed) Int() int32 {
	return int32(f) >> 8
}

func (f Fixed) Float() float64 {
	return float64(f) / 256
}

func (f Fixed) String() string {
	return strconv.FormatFloat(f.Float(), 'f', -1, 64)
}

// NewId describes an object whose interface is only known at runtime. It is
// the payload of a new_id argument with no pinned interface.
type NewId struct {
	Interface string
	Version   uint32
	Id        Id
}

// Fd is a borrowed file descriptor. The stream duplicates it when the message
// is built, so the caller keeps ownership of the original.
type Fd int
