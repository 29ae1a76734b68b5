package cipher_test

import (
	"strings"
	"testing"

	"caesarwheel/internal/cipher"
)

var samples = []string{
	"",
	"HELLO",
	"Hello, World!",
	"abcdefghijklmnopqrstuvwxyz",
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ",
	"Zebra 42 -> yak_9 {x}",
	"naïve café Ωmega 日本語",
	"tab\tnew\nline",
	string([]byte{'a', 0xff, 'Z', 0xc3}),
}

func TestTransform_Examples(t *testing.T) {
	cases := []struct {
		in    string
		shift int
		mode  cipher.Mode
		want  string
	}{
		{"HELLO", 3, cipher.Encrypt, "KHOOR"},
		{"Hello, World!", 3, cipher.Encrypt, "Khoor, Zruog!"},
		{"Khoor, Zruog!", 3, cipher.Decrypt, "Hello, World!"},
		{"abc", 0, cipher.Encrypt, "abc"},
		{"xyz", 3, cipher.Encrypt, "abc"},
		{"ABC", 25, cipher.Encrypt, "ZAB"},
		{"abc", -1, cipher.Encrypt, "zab"},
		{"abc", 27, cipher.Encrypt, "bcd"},
		{"", 7, cipher.Decrypt, ""},
	}
	for _, tc := range cases {
		if got := cipher.Transform(tc.in, tc.shift, tc.mode); got != tc.want {
			t.Errorf("Transform(%q, %d, %v) = %q, want %q", tc.in, tc.shift, tc.mode, got, tc.want)
		}
	}
}

func TestTransform_DecryptInvertsEncrypt(t *testing.T) {
	for s := -30; s <= 60; s++ {
		for _, text := range samples {
			enc := cipher.Transform(text, s, cipher.Encrypt)
			if got := cipher.Transform(enc, s, cipher.Decrypt); got != text {
				t.Fatalf("shift %d: round trip of %q gave %q", s, text, got)
			}
		}
	}
}

func TestTransform_ShiftZeroAndFullTurnAreIdentity(t *testing.T) {
	for _, text := range samples {
		if got := cipher.Transform(text, 0, cipher.Encrypt); got != text {
			t.Errorf("shift 0 changed %q to %q", text, got)
		}
		if got, want := cipher.Transform(text, 26, cipher.Encrypt), cipher.Transform(text, 0, cipher.Encrypt); got != want {
			t.Errorf("shift 26 gave %q, shift 0 gave %q", got, want)
		}
	}
}

func TestTransform_NonLettersKeepPositionAndCaseIsPreserved(t *testing.T) {
	isLetter := func(c byte) bool { return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') }

	for s := 1; s < cipher.AlphabetSize; s++ {
		for _, text := range samples {
			out := cipher.Transform(text, s, cipher.Encrypt)
			if len(out) != len(text) {
				t.Fatalf("shift %d: length changed for %q", s, text)
			}
			for i := 0; i < len(text); i++ {
				in, got := text[i], out[i]
				switch {
				case !isLetter(in):
					if got != in {
						t.Fatalf("shift %d: byte %d of %q changed from %q to %q", s, i, text, in, got)
					}
				case in >= 'A' && in <= 'Z':
					if got < 'A' || got > 'Z' {
						t.Fatalf("shift %d: uppercase %q became %q", s, in, got)
					}
				default:
					if got < 'a' || got > 'z' {
						t.Fatalf("shift %d: lowercase %q became %q", s, in, got)
					}
				}
			}
		}
	}
}

func TestEffectiveShift(t *testing.T) {
	if got := cipher.EffectiveShift(3, cipher.Encrypt); got != 3 {
		t.Errorf("encrypt 3 = %d", got)
	}
	if got := cipher.EffectiveShift(3, cipher.Decrypt); got != 23 {
		t.Errorf("decrypt 3 = %d", got)
	}
	if got := cipher.EffectiveShift(0, cipher.Decrypt); got != 0 {
		t.Errorf("decrypt 0 = %d", got)
	}
	if got := cipher.EffectiveShift(-27, cipher.Encrypt); got != 25 {
		t.Errorf("encrypt -27 = %d", got)
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"encrypt", "ENC", " e "} {
		m, err := cipher.ParseMode(s)
		if err != nil || m != cipher.Encrypt {
			t.Errorf("ParseMode(%q) = %v, %v", s, m, err)
		}
	}
	for _, s := range []string{"Decrypt", "dec", "d"} {
		m, err := cipher.ParseMode(s)
		if err != nil || m != cipher.Decrypt {
			t.Errorf("ParseMode(%q) = %v, %v", s, m, err)
		}
	}
	if _, err := cipher.ParseMode("rot13"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if cipher.Encrypt.Toggle() != cipher.Decrypt || cipher.Decrypt.Toggle() != cipher.Encrypt {
		t.Fatalf("Toggle is not an involution")
	}
}

func TestCandidates_ContainsPlaintext(t *testing.T) {
	ct := cipher.Transform("Attack at dawn", 11, cipher.Encrypt)
	cands := cipher.Candidates(ct)
	if len(cands) != cipher.AlphabetSize {
		t.Fatalf("expected %d candidates, got %d", cipher.AlphabetSize, len(cands))
	}
	if cands[11].Shift != 11 || cands[11].Text != "Attack at dawn" {
		t.Fatalf("candidate 11 = %+v", cands[11])
	}
	if !strings.EqualFold(cands[0].Text, ct) {
		t.Fatalf("candidate 0 should be the ciphertext itself")
	}
}
