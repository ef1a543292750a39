// Package calendar provides calendar-day dates and the injected "today" source
// used by all scheduling math. Dates are formatted as YYYY-MM-DD so that due-date
// comparisons stay string-comparable.
package calendar
