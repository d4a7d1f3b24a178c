package env

import (
	"os"
	"strings"
)

// Prefix namespaces variables read before the config layer is loaded.
const Prefix = "MARKETCART_"

// Get returns Prefix+key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(Prefix + key)); val != "" {
		return val
	}
	return fallback
}
