// Package scheduler validates the start of operator commands appended to the
// plan queue against the previous command's hold window, and composes the
// joined plan from the queue. Deferral is reported as a Decision, never as an
// error: callers always proceed with the resolved start.
package scheduler
