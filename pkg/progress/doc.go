/*
Package progress implements the in-flight call counter.

Reduce is the transition function: CALL_STARTED increments, CALL_FAILED or any
kind ending in _SUCCESS decrements, everything else passes through. It does not
clamp, so an unmatched end signal drives the count negative.

ReduceClamped is the opt-in alternative: the count never drops below zero and
unmatched end signals are tallied in Counter.Unmatched instead.
*/
package progress
