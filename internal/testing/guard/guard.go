// Package guard flips the application into test mode before any package
// init code runs. Test files blank-import it so accidental entrypoint
// execution never opens sockets or touches external services.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CAMPUSLEDGER_TEST_MODE") == "" {
			_ = os.Setenv("CAMPUSLEDGER_TEST_MODE", "1")
		}
	})
}
