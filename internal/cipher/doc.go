// Package cipher implements the Caesar letter-substitution transform used by
// the cipher wheel.
//
// Contents
//
//   - Mode (Encrypt, Decrypt), its parsing and toggling (ParseMode, Toggle)
//   - The effective rotation applied for a shift and mode (EffectiveShift)
//   - The transform itself (Transform) and an exhaustive decryption listing
//     for recovering an unknown shift (Candidates)
//
// # Notes
//
// Only the 52 ASCII letters are rotated; every other rune, including
// non-Latin letters, is copied through at its original position. Transform is
// total: any integer shift is reduced modulo AlphabetSize first and no input
// string produces an error.
package cipher
