package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const keychainService = "pagebuilder"

// itemNotFound is the exit status `security` uses for a missing item.
const itemNotFound = 44

// runner executes a `security` subcommand and returns its stdout.
type runner func(args ...string) ([]byte, error)

func runSecurity(args ...string) ([]byte, error) {
	cmd := exec.Command("security", args...)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		err = fmt.Errorf("%s: %w", strings.TrimSpace(string(exitErr.Stderr)), err)
	}
	return out, err
}

// KeychainStore keeps secrets as generic passwords in the macOS login
// keychain, one item per key under the pagebuilder service.
type KeychainStore struct {
	service string
	run     runner
}

func NewKeychainStore() *KeychainStore {
	return &KeychainStore{service: keychainService, run: runSecurity}
}

// Set writes value under key, replacing an existing item (-U).
func (k *KeychainStore) Set(key string, value []byte) error {
	_, err := k.run("add-generic-password", "-U", "-a", key, "-s", k.service, "-w", string(value))
	if err != nil {
		return fmt.Errorf("keychain set %s: %w", key, err)
	}
	return nil
}

// Get returns nil, nil when the item does not exist.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, err := k.run("find-generic-password", "-a", key, "-s", k.service, "-w")
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keychain get %s: %w", key, err)
	}
	return []byte(strings.TrimRight(string(out), "\n")), nil
}

// Delete is a no-op for missing items.
func (k *KeychainStore) Delete(key string) error {
	_, err := k.run("delete-generic-password", "-a", key, "-s", k.service)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("keychain delete %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == itemNotFound
}
