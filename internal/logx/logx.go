// Package logx gates this codebase's log.Printf-style lifecycle logging
// behind a single verbosity threshold, the way the reference CLI's own
// --log flag is documented: 0 is silent, 6 is the most chatty. It wraps
// the standard library's log package rather than introducing a
// structured logging dependency.
package logx

import (
	"log"
	"sync/atomic"
)

var level atomic.Int32

func init() {
	level.Store(3)
}

// SetLevel sets the active verbosity threshold, clamped to [0, 6].
func SetLevel(l int) {
	switch {
	case l < 0:
		l = 0
	case l > 6:
		l = 6
	}
	level.Store(int32(l))
}

func enabled(threshold int32) bool {
	return level.Load() >= threshold
}

func Errorf(format string, args ...any) {
	if enabled(1) {
		log.Printf("ERROR "+format, args...)
	}
}

func Warnf(format string, args ...any) {
	if enabled(2) {
		log.Printf("WARN "+format, args...)
	}
}

func Infof(format string, args ...any) {
	if enabled(3) {
		log.Printf("INFO "+format, args...)
	}
}

func Debugf(format string, args ...any) {
	if enabled(5) {
		log.Printf("DEBUG "+format, args...)
	}
}

func Tracef(format string, args ...any) {
	if enabled(6) {
		log.Printf("TRACE "+format, args...)
	}
}
