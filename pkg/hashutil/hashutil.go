package hashutil

import (
	"crypto/sha256"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// CanonicalTimeLayout is the only layout timestamps are rendered to before
// being hashed. Times are always converted to UTC first.
const CanonicalTimeLayout = "2006-01-02T15:04:05.000Z"

// ErrInvalidInputKind is thrown when a value of an unsupported type is given
// to Sha256Fields.
var ErrInvalidInputKind = errors.New("unsupported input kind for canonical hashing")

// Scaled couples a decimal amount with the canonical scale of the currency it
// is denominated in. The amount is rescaled (half-up) to that scale before
// being hashed, so that 100 and 100.00 produce the same digest at scale 2.
type Scaled struct {
	Amount decimal.Decimal
	Scale  int32
}

// Canonical returns the normalized string representation of the amount.
func (s Scaled) Canonical() string {
	return s.Amount.StringFixed(s.Scale)
}

// Named is implemented by enumerated codes that hash by their canonical name.
type Named interface {
	CanonicalName() string
}

// Sha256Fields computes a 32-byte digest over an ordered sequence of typed
// values. Every value is first hashed over its normalized representation,
// then the concatenation of the per-value digests is hashed again. Two
// sequences of logically identical values always yield the same digest no
// matter their surface representation.
//
// Supported kinds are string, []byte, time.Time, Scaled and Named. Anything
// else fails with ErrInvalidInputKind.
func Sha256Fields(values ...interface{}) ([]byte, error) {
	buf := make([]byte, 0, sha256.Size*len(values))
	for _, v := range values {
		normalized, err := normalize(v)
		if err != nil {
			return nil, err
		}
		digest := sha256.Sum256(normalized)
		buf = append(buf, digest[:]...)
	}
	digest := sha256.Sum256(buf)
	return digest[:], nil
}

func normalize(v interface{}) ([]byte, error) {
	switch value := v.(type) {
	case string:
		return []byte(value), nil
	case []byte:
		return value, nil
	case time.Time:
		return []byte(value.UTC().Format(CanonicalTimeLayout)), nil
	case Scaled:
		return []byte(value.Canonical()), nil
	case Named:
		return []byte(value.CanonicalName()), nil
	default:
		return nil, ErrInvalidInputKind
	}
}
