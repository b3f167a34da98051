// Package devtools records dispatched signals and the resulting states so a
// development session can inspect the history and jump back to any point.
package devtools
