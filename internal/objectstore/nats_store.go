// Package objectstore stores synthesized audio in a NATS JetStream object
// bucket, keyed by job.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mdakk072/KTTS72/internal/core"
)

// Metadata keys attached to every stored object, so a consumer can inspect
// the audio without downloading and decoding it.
const (
	MetaContentType = "content-type"
	MetaSampleRate  = "sample-rate-hz"
	MetaDurationMs  = "duration-ms"
)

// NatsObjectStore implements core.ObjectStore on a JetStream object bucket.
type NatsObjectStore struct {
	jetstreamContext nats.JetStreamContext
	bucket           string
	store            nats.ObjectStore
}

// New creates the bucket if absent and binds to it otherwise. Create-first
// keeps startup race-free when several workers boot against the same server.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*NatsObjectStore, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Synthesized audio for the %s bucket.", bucketName),
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf(
				"failed to create object store bucket '%s': %w", bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to bind to existing object store bucket '%s': %w",
				bucketName, err)
		}
	}

	return &NatsObjectStore{
		jetstreamContext: jetstreamContext,
		bucket:           bucketName,
		store:            store,
	}, nil
}

// Download retrieves one object by key.
func (n *NatsObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	obj, getErr := n.store.Get(key)
	if getErr != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w",
			key, n.bucket, getErr)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload stores one audio object under key, replacing any previous value.
// Content type, sample rate and duration travel as object metadata.
func (n *NatsObjectStore) Upload(_ context.Context, key string, object core.AudioObject) error {
	reader := bytes.NewReader(object.Data)

	_, putErr := n.store.Put(&nats.ObjectMeta{
		Name: key,
		Description: fmt.Sprintf("%s, %d Hz, %d ms",
			object.ContentType, object.SampleRate, object.DurationMs),
		Headers: nil,
		Metadata: map[string]string{
			MetaContentType: object.ContentType,
			MetaSampleRate:  strconv.Itoa(object.SampleRate),
			MetaDurationMs:  strconv.FormatInt(object.DurationMs, 10),
		},
		Opts: nil,
	}, reader)
	if putErr != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w",
			key, n.bucket, putErr)
	}

	return nil
}
