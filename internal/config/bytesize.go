package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ByteSize is a byte count configured as "256MB", "1.5 gb", "4k" or a plain
// number. Units are binary.
type ByteSize int64

const (
	Byte     ByteSize = 1
	Kilobyte          = Byte << 10
	Megabyte          = Kilobyte << 10
	Gigabyte          = Megabyte << 10
)

// sizeUnits is ordered largest first for String.
var sizeUnits = []struct {
	size    ByteSize
	suffix  string
	aliases []string
}{
	{Gigabyte, "GB", []string{"g", "gb"}},
	{Megabyte, "MB", []string{"m", "mb"}},
	{Kilobyte, "KB", []string{"k", "kb"}},
	{Byte, "B", []string{"", "b"}},
}

func unitFor(suffix string) (ByteSize, bool) {
	suffix = strings.ToLower(suffix)
	for _, u := range sizeUnits {
		for _, alias := range u.aliases {
			if alias == suffix {
				return u.size, true
			}
		}
	}
	return 0, false
}

// ParseByteSize parses a non-negative size with an optional unit suffix.
func ParseByteSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("bytesize: empty value")
	}

	split := strings.IndexFunc(s, unicode.IsLetter)
	if split < 0 {
		split = len(s)
	}
	number := strings.TrimSpace(s[:split])
	if number == "" || strings.ContainsAny(number, "+-") {
		return 0, fmt.Errorf("bytesize: invalid format %q", s)
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("bytesize: invalid number in %q: %w", s, err)
	}
	unit, ok := unitFor(s[split:])
	if !ok {
		return 0, fmt.Errorf("bytesize: unknown unit %q", s[split:])
	}
	return ByteSize(value * float64(unit)), nil
}

// UnmarshalText lets viper and YAML decode human-readable sizes.
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := ParseByteSize(string(text))
	if err == nil {
		*b = size
	}
	return err
}

// UnmarshalJSON accepts either a size string or a raw byte count.
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*b = ByteSize(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("bytesize: %w", err)
	}
	return b.UnmarshalText([]byte(s))
}

func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// String renders b in the largest unit that divides it exactly.
func (b ByteSize) String() string {
	for _, u := range sizeUnits {
		if b != 0 && b%u.size == 0 {
			return strconv.FormatInt(int64(b/u.size), 10) + u.suffix
		}
	}
	return strconv.FormatInt(int64(b), 10) + "B"
}
