// Package titlematch decides whether two catalog titles from different
// providers name the same content.
//
// Titles are folded (width, NFKC, lowercase, simplified script) and stripped
// of region tags before scoring. Similarity takes the better of an
// edit-distance score and a Dice coefficient over character sets, with a
// capped reward for substring containment. Season, part, and special markers
// are extracted into a small token set (S2, P1, MOVIE, OVA, SP, SEQUEL) that
// the merge layer uses to veto candidates whose seasons or media types
// disagree.
package titlematch
