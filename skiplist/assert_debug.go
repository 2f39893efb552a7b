//go:build debug

package skiplist

import (
	"fmt"
	"runtime"
)

// assert panics with the caller's location if cond is false. Only compiled
// in with -tags debug; release builds use the no-op in assert_release.go.
func assert(cond bool) {
	if cond {
		return
	}
	pc, file, no, ok := runtime.Caller(1)
	if ok {
		name := runtime.FuncForPC(pc).Name()
		panic(fmt.Sprintf("assertion failed (%s:%d:%s)", file, no, name))
	}
	panic("assertion failed")
}
