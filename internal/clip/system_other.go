//go:build !windows && !(cgo && (darwin || linux))

package clip

import (
	"fmt"
	"runtime"
	"time"
)

// NewSystem reports ErrUnavailable: golang.design/x/clipboard needs cgo on
// this platform, or does not support it at all.
func NewSystem(_ time.Duration) (Backend, error) {
	return nil, fmt.Errorf("%w: no system clipboard on %s/%s without cgo",
		ErrUnavailable, runtime.GOOS, runtime.GOARCH)
}
