package safe

import (
	"TeamWork/logger"
)

// Go starts a goroutine that recovers from panics so a single bad
// connection or fan-out job cannot crash the process.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}
