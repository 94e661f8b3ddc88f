package password

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Kind identifies which representation a [Stored] value holds.
type Kind uint8

const (
	// KindNone means no password is set (OAuth-only accounts).
	KindNone Kind = iota
	// KindLegacy is the deprecated hex(SHA-256(password + secret)) digest.
	KindLegacy
	// KindDerived is a PBKDF2 record.
	KindDerived
)

func (k Kind) String() string {
	switch k {
	case KindLegacy:
		return "legacy"
	case KindDerived:
		return "pbkdf2"
	default:
		return "none"
	}
}

// Derived is a salted PBKDF2 record. Field names match the persisted JSON.
type Derived struct {
	Hash       string `json:"hash"`
	Salt       string `json:"salt"`
	Iterations int    `json:"iterations"`
	Algorithm  string `json:"algorithm"`
}

// Stored is either a legacy digest or a derived record, never both.
// The zero value holds no password.
//
// JSON: a string decodes as legacy, an object as derived, null as none.
type Stored struct {
	legacy  string
	derived *Derived
}

// Legacy wraps a legacy digest.
func Legacy(digest string) Stored {
	return Stored{legacy: digest}
}

// FromDerived wraps a derived record.
func FromDerived(d Derived) Stored {
	return Stored{derived: &d}
}

func (s Stored) Kind() Kind {
	switch {
	case s.derived != nil:
		return KindDerived
	case s.legacy != "":
		return KindLegacy
	default:
		return KindNone
	}
}

func (s Stored) IsZero() bool {
	return s.Kind() == KindNone
}

// LegacyDigest returns the legacy digest when Kind is KindLegacy.
func (s Stored) LegacyDigest() (string, bool) {
	if s.Kind() != KindLegacy {
		return "", false
	}
	return s.legacy, true
}

// Derived returns the PBKDF2 record when Kind is KindDerived.
func (s Stored) Derived() (Derived, bool) {
	if s.derived == nil {
		return Derived{}, false
	}
	return *s.derived, true
}

func (s Stored) MarshalJSON() ([]byte, error) {
	switch s.Kind() {
	case KindDerived:
		return json.Marshal(s.derived)
	case KindLegacy:
		return json.Marshal(s.legacy)
	default:
		return []byte("null"), nil
	}
}

func (s *Stored) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = Stored{}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var digest string
		if err := json.Unmarshal(data, &digest); err != nil {
			return err
		}
		s.legacy = digest
		return nil
	case '{':
		var d Derived
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		if d.Hash == "" || d.Salt == "" {
			return ErrMalformedRecord
		}
		s.derived = &d
		return nil
	default:
		return errors.New("password hash must be a string or an object")
	}
}
