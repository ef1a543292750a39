// Package domain holds the review entities: items, review candidates, and
// exams, together with the modes and statuses that drive their lifecycle.
// Scheduling arithmetic lives in the schedule subpackage and calendar days in
// calendar.
package domain
