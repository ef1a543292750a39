// Package content keeps the review pool in step with the item catalogue:
// registering an item schedules its first candidate and removing one drops
// its open candidate.
package content
