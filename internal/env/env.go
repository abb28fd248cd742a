// Package env exposes the deployment environment and small env-var helpers.
package env

import "os"

type Environment string

const (
	Local      Environment = "local"
	Production Environment = "production"

	Key string = "ENV"
)

func (e Environment) Valid() bool {
	switch e {
	case Local, Production:
		return true
	}
	return false
}

var Current Environment = Local

func init() {
	v := os.Getenv(Key)
	Current = Environment(v)
	if !Current.Valid() {
		Current = Local
	}
}

// Or returns the value of the environment variable key, or fallback when unset.
func Or(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
