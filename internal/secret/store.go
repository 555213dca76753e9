package secret

import "runtime"

// PublishTokenKey is the key the backend API token is stored under.
const PublishTokenKey = "publish-token"

// SecretStore provides a pluggable interface for storing credentials such
// as the backend API token.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// Default returns the Keychain on macOS and a file under dataDir elsewhere.
func Default(dataDir string) SecretStore {
	if runtime.GOOS == "darwin" {
		return NewKeychainStore()
	}
	return NewFileStore(dataDir)
}
