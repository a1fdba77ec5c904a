package env

import "os"

// Get returns the value of the given environment variable or a fallback.
// The service binaries use it for platform-injected values like PORT that
// sit outside the HIRELOCAL_ config prefix.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
