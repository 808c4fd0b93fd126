package statestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

// leaseDuration and renewInterval match SPEC_FULL.md §5.5: a 60s lease
// renewed every 30s (half the lease) until unlock/force-unlock.
const (
	leaseDuration = 60 * time.Second
	renewInterval = leaseDuration / 2
)

// BlobBackend stores state as an S3 object, using a sibling lock object
// (<key>.lock) and conditional PutObject (If-None-Match: "*") to implement
// exclusive locking without native S3 lease support — S3 has no blob-lease
// primitive the way Azure Blob does, so the lock is its own small object
// carrying a lease token and an expiry, renewed by a background ticker.
// Grounded on pkg/artifacts/s3_store.go's AWS SDK v2 client construction
// and pkg/credentials/rotation.go's renewal-manager shape.
type BlobBackend struct {
	client *s3.Client
	bucket string
	key    string
	logger *slog.Logger

	mu         sync.Mutex
	leaseToken string
	stopRenew  chan struct{}
	renewDone  chan struct{}
}

// BlobConfig configures a BlobBackend.
type BlobConfig struct {
	Bucket   string
	Key      string
	Region   string
	Endpoint string // optional custom endpoint, e.g. for MinIO/LocalStack testing
}

// NewBlobBackend builds an S3-backed Backend.
func NewBlobBackend(ctx context.Context, cfg BlobConfig, logger *slog.Logger) (*BlobBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("statestore: load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &BlobBackend{client: client, bucket: cfg.Bucket, key: cfg.Key, logger: logger}, nil
}

func (b *BlobBackend) lockKey() string { return b.key + ".lock" }

type lockPayload struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (b *BlobBackend) Init(ctx context.Context, subscriptionID, resourceGroup, serviceName string) (*State, error) {
	state := Empty(subscriptionID, resourceGroup, serviceName)
	if err := b.Write(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (b *BlobBackend) Read(ctx context.Context) (*State, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(b.key)})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("statestore: get %s: %w", b.key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("statestore: read %s: %w", b.key, err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("statestore: decode %s: %w", b.key, err)
	}
	if err := CheckVersion(state.Version); err != nil {
		return nil, err
	}
	return &state, nil
}

func (b *BlobBackend) Write(ctx context.Context, state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("statestore: encode state: %w", err)
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("statestore: put %s: %w", b.key, err)
	}
	return nil
}

// Lock acquires the lock object via a conditional put (IfNoneMatch: "*"),
// which fails if the object already exists — the S3 analogue of Azure
// Blob's lease.acquire(). On success it starts a background ticker that
// renews the lease every renewInterval until Unlock/ForceUnlock.
func (b *BlobBackend) Lock(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	token := uuid.NewString()
	payload := lockPayload{Token: token, ExpiresAt: time.Now().Add(leaseDuration)}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("statestore: encode lock payload: %w", err)
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.lockKey()),
		Body:        bytes.NewReader(data),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return ErrLocked
		}
		return fmt.Errorf("statestore: acquire lease: %w", err)
	}

	b.leaseToken = token
	b.stopRenew = make(chan struct{})
	b.renewDone = make(chan struct{})
	go b.renewLoop(token, b.stopRenew, b.renewDone)
	return nil
}

func (b *BlobBackend) renewLoop(token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(renewInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			payload := lockPayload{Token: token, ExpiresAt: time.Now().Add(leaseDuration)}
			data, err := json.Marshal(payload)
			if err != nil {
				return
			}
			ctx := context.Background()
			_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
				Bucket: aws.String(b.bucket),
				Key:    aws.String(b.lockKey()),
				Body:   bytes.NewReader(data),
			})
			if err != nil {
				b.logger.Warn("statestore: lease renewal failed", "error", err)
				return
			}
		}
	}
}

func (b *BlobBackend) Unlock(ctx context.Context) error {
	b.mu.Lock()
	if b.stopRenew != nil {
		close(b.stopRenew)
		<-b.renewDone
		b.stopRenew = nil
		b.renewDone = nil
	}
	b.leaseToken = ""
	b.mu.Unlock()

	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(b.lockKey())})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("statestore: release lease: %w", err)
	}
	return nil
}

// ForceUnlock removes the lock object regardless of who holds it, for the
// force-unlock verb — it does not stop another process's renewal
// goroutine (that process isn't this one), it just deletes the object so
// the next Lock can succeed; a concurrent renewal will simply recreate it,
// which is the same break-then-race semantics Azure's break_lease has.
func (b *BlobBackend) ForceUnlock(ctx context.Context) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(b.lockKey())})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("statestore: force-unlock: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "PreconditionFailed" || code == "ConditionalRequestConflict"
	}
	return false
}

var _ Backend = (*BlobBackend)(nil)
