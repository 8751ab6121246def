// Package textutil provides text folding, Chinese script conversion, and
// string similarity primitives shared by title matching and comment
// normalization.
//
// The primary use cases are:
//   - Folding full-width and compatibility forms into a canonical lowercase form
//   - Converting between traditional and simplified Chinese with a fixed table
//   - Computing edit-distance and Dice similarity over rune sequences
//
// Script conversion is character-for-character and deliberately small; it
// covers the characters that appear in anime and drama titles and in common
// danmaku, not full phrase-level conversion.
package textutil
