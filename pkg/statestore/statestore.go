// Package statestore implements the reconciliation engine's state
// lifecycle: read/write of the versioned artifact-hash map plus exclusive
// locking, across three backends (local file, S3 blob, Postgres).
// Grounded on original_source/src/apy_ops/state.py.
package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
)

// StateVersion is stamped into every state document; a future schema
// change would bump this, though state schema evolution beyond this tag
// is out of scope.
const StateVersion = 1

// ErrLocked is returned by Lock when another process already holds the
// exclusive lock.
var ErrLocked = errors.New("statestore: state is locked by another process; use force-unlock to remove")

// engineMaxVersion is the highest state schema version this build
// understands, expressed as a semver so CheckVersion can use ordinary
// major-version comparison instead of a bare int equality check.
var engineMaxVersion = semver.MustParse(fmt.Sprintf("%d.0.0", StateVersion))

// CheckVersion refuses to operate on a state document stamped with a
// newer major version than this build understands, rather than silently
// misreading or truncating fields an older binary can't parse. Every
// backend's Read calls this before returning the decoded state.
func CheckVersion(stateVersion int) error {
	v, err := semver.NewVersion(fmt.Sprintf("%d.0.0", stateVersion))
	if err != nil {
		return fmt.Errorf("statestore: invalid state version %d: %w", stateVersion, err)
	}
	if v.Major() > engineMaxVersion.Major() {
		return fmt.Errorf("statestore: state file version %d is newer than this build supports (max %d); upgrade apimctl before operating on this state", stateVersion, StateVersion)
	}
	return nil
}

// Artifact is one entry of a State's artifact map: the content hash this
// engine last observed or applied for that artifact, plus enough of its
// properties to render a human plan summary without a live re-read.
type Artifact struct {
	Kind       string                 `json:"kind"`
	ID         string                 `json:"id"`
	Hash       string                 `json:"hash"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// State is the full persisted reconciliation state document, matching
// state.py's empty_state() shape field-for-field.
type State struct {
	Version        int                 `json:"version"`
	APIMService    string              `json:"apim_service"`
	ResourceGroup  string              `json:"resource_group"`
	SubscriptionID string              `json:"subscription_id"`
	LastApplied    *time.Time          `json:"last_applied"`
	Artifacts      map[string]Artifact `json:"artifacts"`
}

// Empty builds a fresh state document, as state.py's empty_state.
func Empty(subscriptionID, resourceGroup, serviceName string) *State {
	return &State{
		Version:        StateVersion,
		APIMService:    serviceName,
		ResourceGroup:  resourceGroup,
		SubscriptionID: subscriptionID,
		Artifacts:      map[string]Artifact{},
	}
}

// Backend is the contract every state storage medium implements: init,
// read/write of the document, and exclusive locking around a plan/apply
// cycle. Grounded on state.py's LocalStateBackend/AzureBlobStateBackend
// pair, generalized to a Go interface so a third (Postgres) backend can be
// added without touching callers.
type Backend interface {
	Init(ctx context.Context, subscriptionID, resourceGroup, serviceName string) (*State, error)
	Read(ctx context.Context) (*State, error)
	Write(ctx context.Context, s *State) error
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	ForceUnlock(ctx context.Context) error
}
