package catalog

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ordinalScale is the number of stored units per whole position (three decimals).
const ordinalScale = 1000

// Ordinal is a book's position within its series, e.g. 1, 2.5 or 0.125.
// It keeps three decimal places and is stored as an integer count of
// thousandths so ordering comparisons stay exact in every dialect.
// The zero value means "no position".
type Ordinal struct {
	thousandths int64
	valid       bool
}

// OrdinalFromThousandths builds an Ordinal from its stored representation.
func OrdinalFromThousandths(v int64) Ordinal {
	return Ordinal{thousandths: v, valid: true}
}

// OrdinalFromFloat rounds f to three decimal places.
func OrdinalFromFloat(f float64) (Ordinal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Ordinal{}, fmt.Errorf("ordinal %v is not finite", f)
	}
	return Ordinal{thousandths: int64(math.Round(f * ordinalScale)), valid: true}, nil
}

// ParseOrdinal parses a decimal such as "2" or "2.5". At most three
// fractional digits are accepted.
func ParseOrdinal(s string) (Ordinal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ordinal{}, errors.New("ordinal is empty")
	}

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return Ordinal{}, fmt.Errorf("ordinal %q is not a number", s)
	}
	if len(frac) > 3 {
		return Ordinal{}, fmt.Errorf("ordinal %q has more than three decimal places", s)
	}

	var w int64
	if whole != "" {
		v, err := strconv.ParseInt(whole, 10, 64)
		if err != nil || v < 0 {
			return Ordinal{}, fmt.Errorf("ordinal %q is not a number", s)
		}
		w = v
	}

	var f int64
	if frac != "" {
		v, err := strconv.ParseInt(frac+strings.Repeat("0", 3-len(frac)), 10, 64)
		if err != nil || v < 0 {
			return Ordinal{}, fmt.Errorf("ordinal %q is not a number", s)
		}
		f = v
	}

	total := w*ordinalScale + f
	if neg {
		total = -total
	}
	return Ordinal{thousandths: total, valid: true}, nil
}

// Valid reports whether the ordinal holds a value.
func (o Ordinal) Valid() bool { return o.valid }

// Thousandths returns the stored representation.
func (o Ordinal) Thousandths() int64 { return o.thousandths }

// Float returns the ordinal as a float64.
func (o Ordinal) Float() float64 { return float64(o.thousandths) / ordinalScale }

// String formats the ordinal without trailing zeros, "" when unset.
func (o Ordinal) String() string {
	if !o.valid {
		return ""
	}
	v := o.thousandths
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole, frac := v/ordinalScale, v%ordinalScale
	if frac == 0 {
		return sign + strconv.FormatInt(whole, 10)
	}
	digits := strings.TrimRight(fmt.Sprintf("%03d", frac), "0")
	return sign + strconv.FormatInt(whole, 10) + "." + digits
}

// Value implements driver.Valuer.
func (o Ordinal) Value() (driver.Value, error) {
	if !o.valid {
		return nil, nil
	}
	return o.thousandths, nil
}

// Scan implements sql.Scanner.
func (o *Ordinal) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*o = Ordinal{}
	case int64:
		*o = OrdinalFromThousandths(v)
	case int32:
		*o = OrdinalFromThousandths(int64(v))
	case float64:
		*o = OrdinalFromThousandths(int64(math.Round(v)))
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("scan ordinal: %w", err)
		}
		*o = OrdinalFromThousandths(n)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("scan ordinal: %w", err)
		}
		*o = OrdinalFromThousandths(n)
	default:
		return fmt.Errorf("scan ordinal: unsupported type %T", src)
	}
	return nil
}
