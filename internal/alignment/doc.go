// Package alignment finds the index offset between two providers' episode
// lists for the same show.
//
// Providers disagree on numbering: one may include a prologue, another may
// start a second cour at episode 13. FindOffset scores every candidate shift
// by title similarity, episode-number agreement, and special-episode
// consistency, and returns the best shift when it clears a minimum score.
package alignment
