package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// LocalBackend stores state as a JSON file on disk, locked by an O_EXCL
// sidecar file containing the holder's PID. Grounded on
// pkg/artifacts/store.go's atomic-write-then-rename (tmp file + os.Rename)
// and state.py's LocalStateBackend.
type LocalBackend struct {
	statePath string
	lockPath  string
}

// NewLocalBackend builds a Backend rooted at statePath (e.g.
// "./apimctl.state.json"); the lock sidecar is statePath + ".lock".
func NewLocalBackend(statePath string) *LocalBackend {
	return &LocalBackend{statePath: statePath, lockPath: statePath + ".lock"}
}

func (b *LocalBackend) Init(ctx context.Context, subscriptionID, resourceGroup, serviceName string) (*State, error) {
	state := Empty(subscriptionID, resourceGroup, serviceName)
	if err := b.Write(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (b *LocalBackend) Read(ctx context.Context) (*State, error) {
	data, err := os.ReadFile(b.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("statestore: read %s: %w", b.statePath, err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("statestore: decode %s: %w", b.statePath, err)
	}
	if err := CheckVersion(state.Version); err != nil {
		return nil, err
	}
	return &state, nil
}

func (b *LocalBackend) Write(ctx context.Context, state *State) error {
	dir := filepath.Dir(b.statePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("statestore: ensure dir %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("statestore: encode state: %w", err)
	}
	data = append(data, '\n')

	tmp := b.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("statestore: write temp state: %w", err)
	}
	if err := os.Rename(tmp, b.statePath); err != nil {
		return fmt.Errorf("statestore: commit state: %w", err)
	}
	return nil
}

func (b *LocalBackend) Lock(ctx context.Context) error {
	f, err := os.OpenFile(b.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrLocked
		}
		return fmt.Errorf("statestore: create lock file: %w", err)
	}
	defer f.Close()
	_, err = f.WriteString(strconv.Itoa(os.Getpid()))
	return err
}

func (b *LocalBackend) Unlock(ctx context.Context) error {
	if err := os.Remove(b.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("statestore: remove lock file: %w", err)
	}
	return nil
}

func (b *LocalBackend) ForceUnlock(ctx context.Context) error {
	return b.Unlock(ctx)
}

var _ Backend = (*LocalBackend)(nil)
