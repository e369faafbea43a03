package lifecycle

import (
	"sync/atomic"
	"time"
)

// startedAt is the unix-nano instant the drain began, 0 while serving.
var startedAt atomic.Int64

// SetShuttingDown flips the drain flag. The first true call records when the
// drain began; weather requests carry no upstream timeout, so a drain can run
// long and the health endpoint reports how long it has been going. false
// re-arms the flag.
func SetShuttingDown(v bool) {
	if v {
		startedAt.CompareAndSwap(0, time.Now().UnixNano())
		return
	}
	startedAt.Store(0)
}

// IsShuttingDown reports whether the process is draining. The health handler
// returns 503 while this is set so load balancers stop routing new traffic.
func IsShuttingDown() bool {
	return startedAt.Load() != 0
}

// DrainingFor returns how long the process has been draining, zero while serving.
func DrainingFor() time.Duration {
	s := startedAt.Load()
	if s == 0 {
		return 0
	}
	return time.Since(time.Unix(0, s))
}
