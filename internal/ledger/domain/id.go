// Package domain defines the quest ledger entities and their validation
// rules. Entities are plain structs; constructors normalize input and
// enforce invariants before anything reaches storage.
package domain

import (
	"strconv"

	apperrors "github.com/louisbranch/questline/internal/platform/errors"
)

// ID is a fixed-width numeric entity identifier. Valid identifiers are
// exactly 16 decimal digits wide; zero marks the absence of a reference
// (an unattached task, an unaffiliated quest).
type ID uint64

const (
	// minID is the smallest 16-digit identifier.
	minID ID = 1_000_000_000_000_000
	// maxID is the largest 16-digit identifier.
	maxID ID = 9_999_999_999_999_999

	// idWidth is the decimal width every identifier must have.
	idWidth = 16
)

// IsZero reports whether the identifier marks an absent reference.
func (id ID) IsZero() bool {
	return id == 0
}

// String renders the identifier as its 16-digit decimal form.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ValidateID checks that id is a 16-digit identifier.
func ValidateID(id ID) error {
	if id < minID || id > maxID {
		return apperrors.WithMetadata(apperrors.CodeIDNotFixedWidth,
			"identifier must be exactly 16 decimal digits",
			map[string]string{"id": id.String()})
	}
	return nil
}

// ParseID decodes a 16-digit decimal string into an identifier. The input
// must be exactly 16 characters, all ASCII digits, with no leading zero;
// anything else is rejected before the value is interpreted.
func ParseID(s string) (ID, error) {
	if len(s) != idWidth {
		return 0, apperrors.WithMetadata(apperrors.CodeIDNotFixedWidth,
			"identifier must be exactly 16 characters",
			map[string]string{"value": s})
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, apperrors.WithMetadata(apperrors.CodeIDNotFixedWidth,
				"identifier must contain only decimal digits",
				map[string]string{"value": s})
		}
	}
	value, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeIDNotFixedWidth, "parse identifier", err)
	}
	id := ID(value)
	if err := ValidateID(id); err != nil {
		return 0, err
	}
	return id, nil
}

// DecodeMemo decodes a deposit memo into the community identifier it
// routes to. A memo is valid only when it is exactly a 16-digit decimal
// community id; any other shape is rejected.
func DecodeMemo(memo string) (ID, error) {
	id, err := ParseID(memo)
	if err != nil {
		return 0, apperrors.WithMetadata(apperrors.CodeMemoMalformed,
			"memo must be exactly a 16-digit community id",
			map[string]string{"memo": memo})
	}
	return id, nil
}
