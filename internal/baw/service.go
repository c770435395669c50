package baw

import (
	"context"
	"time"
)

// FileRef identifies a dispatched file on the gateway side.
type FileRef struct {
	Reference string    `json:"reference"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	SentAt    time.Time `json:"sent_at"`
}

// FileService is the contract against the treasury file hub: outbound
// payment files go out through Send, inbound warrant feeds come back through
// Fetch. Available lets a pipeline skip cleanly when no feed arrived.
type FileService interface {
	Send(ctx context.Context, name string, content []byte) (*FileRef, error)
	Fetch(ctx context.Context, name string) ([]byte, bool, error)
	Available(ctx context.Context, name string) (bool, error)
}
