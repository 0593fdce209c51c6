// Package tracker implements the Tracker Protocol: a distinguished
// handler publishing side-channel status for in-flight sequences (spec
// §4.6).
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"orchestrate/runtime/internal/orchestrate/handlerctx"
	"orchestrate/runtime/internal/orchestrate/wrapper"
)

// RunStatus is the status tag carried on every Status payload (spec §4.6).
type RunStatus string

const (
	StatusRunning RunStatus = "running"
	StatusSuccess RunStatus = "success"
	StatusError   RunStatus = "error"
)

// Status is the tracker's input/output shape (spec §4.6).
type Status struct {
	CorrelationID string    `json:"correlationId"`
	Total         int       `json:"total"`
	Current       int       `json:"current"`
	CurrentFn     string    `json:"currentFn"`
	OriginFn      string    `json:"originFn,omitempty"`
	Status        RunStatus `json:"status"`
	Data          any       `json:"data,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// Input is the tracker handler's full invocation payload.
type Input struct {
	Status               Status `json:"status"`
	FirebaseSecretLocation string `json:"firebaseSecretLocation,omitempty"`
}

// DefaultSecretPath is used when Input.FirebaseSecretLocation is empty.
const DefaultSecretPath = "firebase/SERVICE_ACCOUNT"

// Store is the external status database the tracker writes to (spec §1
// "the database/KV client used by the sample tracker handler" is an
// external collaborator; this is that collaborator's interface).
type Store interface {
	Put(ctx context.Context, key string, status Status) error
}

// Stage resolves the deployment stage from the process environment,
// AWS_STAGE taking priority over NODE_ENV (spec §4.6). Absence of both is
// a fatal error for the tracker, per spec.
func Stage() (string, error) {
	if s := os.Getenv("AWS_STAGE"); s != "" {
		return s, nil
	}
	if s := os.Getenv("NODE_ENV"); s != "" {
		return s, nil
	}
	return "", fmt.Errorf("tracker: neither AWS_STAGE nor NODE_ENV is set")
}

// Handler implements the tracker's contract (spec §4.6) as a
// wrapper.HandlerFunc, so `wrapper.Wrap(tracker.Handler(store), opts)`
// produces an ordinary invocable handler like any other: fetch
// credentials at the configured secret path, connect (the Store already
// owns its connection), write the status document at
// aws-orchestrate/<stage>/<correlationId> overwriting any previous
// value, and echo the status back.
func Handler(store Store) wrapper.HandlerFunc {
	return func(ctx context.Context, request map[string]any, hctx *handlerctx.Context) (any, error) {
		var in Input
		raw, err := json.Marshal(request)
		if err != nil {
			return nil, fmt.Errorf("tracker: re-encoding request: %w", err)
		}
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("tracker: decoding status payload: %w", err)
		}

		stage, err := Stage()
		if err != nil {
			return nil, err
		}

		secretPath := in.FirebaseSecretLocation
		if secretPath == "" {
			secretPath = DefaultSecretPath
		}
		if _, err := hctx.FetchSecret(ctx, secretPath); err != nil {
			return nil, fmt.Errorf("tracker: fetching service credentials: %w", err)
		}

		key := fmt.Sprintf("aws-orchestrate/%s/%s", stage, in.Status.CorrelationID)
		if err := store.Put(ctx, key, in.Status); err != nil {
			return nil, fmt.Errorf("tracker: writing status for %q: %w", in.Status.CorrelationID, err)
		}
		return in.Status, nil
	}
}
