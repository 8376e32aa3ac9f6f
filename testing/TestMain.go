package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("STOREFRONT_TEST_MODE", "1")
		if os.Getenv("BACKEND_URL") == "" {
			_ = os.Setenv("BACKEND_URL", "http://127.0.0.1:0")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
