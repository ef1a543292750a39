// Package review assembles exams from due review candidates and reconciles
// candidate state once an exam is graded or abandoned.
//
// Services hold no in-process locks. Exclusive assignment of a candidate to an
// exam rests on the store's conditional writes, wrapped by CandidateLock so
// that a lost race reads as "not acquired" rather than an error.
package review
