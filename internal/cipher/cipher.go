package cipher

import (
	"fmt"
	"strings"
)

// AlphabetSize is the number of letters a shift rotates through.
const AlphabetSize = 26

// Mode selects the direction of a transform.
type Mode int

const (
	Encrypt Mode = iota
	Decrypt
)

func (m Mode) String() string {
	switch m {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Toggle returns the opposite mode.
func (m Mode) Toggle() Mode {
	if m == Decrypt {
		return Encrypt
	}
	return Decrypt
}

// MarshalText lets Mode appear as "encrypt"/"decrypt" in JSON and YAML.
func (m Mode) MarshalText() ([]byte, error) {
	if m != Encrypt && m != Decrypt {
		return nil, fmt.Errorf("invalid mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode accepts "encrypt"/"decrypt" (and the short forms "enc"/"dec"),
// case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "encrypt", "enc", "e":
		return Encrypt, nil
	case "decrypt", "dec", "d":
		return Decrypt, nil
	default:
		return Encrypt, fmt.Errorf("invalid mode: %q (must be encrypt or decrypt)", s)
	}
}

// EffectiveShift returns the forward rotation in [0, AlphabetSize) that
// Transform applies for shift in mode m.
func EffectiveShift(shift int, m Mode) int {
	s := ((shift % AlphabetSize) + AlphabetSize) % AlphabetSize
	if m == Decrypt {
		return (AlphabetSize - s) % AlphabetSize
	}
	return s
}

// Transform rotates every ASCII letter of text by the effective shift,
// preserving case. Decrypt with shift s inverts Encrypt with shift s.
//
// Bytes outside A-Z and a-z are copied verbatim, so multi-byte UTF-8 and even
// invalid byte sequences survive unchanged.
func Transform(text string, shift int, m Mode) string {
	k := byte(EffectiveShift(shift, m))
	if k == 0 || text == "" {
		return text
	}

	out := []byte(text)
	for i, c := range out {
		switch {
		case c >= 'A' && c <= 'Z':
			out[i] = 'A' + (c-'A'+k)%AlphabetSize
		case c >= 'a' && c <= 'z':
			out[i] = 'a' + (c-'a'+k)%AlphabetSize
		}
	}
	return string(out)
}

// Candidate is one possible plaintext for a ciphertext of unknown shift.
type Candidate struct {
	Shift int
	Text  string
}

// Candidates decrypts text with every shift in [0, AlphabetSize).
func Candidates(text string) []Candidate {
	out := make([]Candidate, 0, AlphabetSize)
	for s := 0; s < AlphabetSize; s++ {
		out = append(out, Candidate{Shift: s, Text: Transform(text, s, Decrypt)})
	}
	return out
}
