package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/domain"
	"github.com/yungbote/fleet-backend/internal/platform/keylock"
)

// PageSize is the number of entities returned per listing page.
const PageSize = 3

const maxLockAttempts = 3

// MissingAttributes is the validation message for create requests lacking a field.
const MissingAttributes = "The request object is missing at least one of the required attributes"

var tracer = otel.Tracer("github.com/yungbote/fleet-backend/internal/services")

// Page is one slice of a listing; NextCursor is empty on the last page.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

// CascadeRecorder observes the secondary writes performed by relationship changes.
type CascadeRecorder interface {
	RecordCascade(op string, writes int)
}

type nopRecorder struct{}

func (nopRecorder) RecordCascade(string, int) {}

func recorderOrNop(r CascadeRecorder) CascadeRecorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

func boatLockKey(id int64) string {
	return docstore.Key{Kind: domain.KindBoat, ID: id}.String()
}

func loadLockKey(id int64) string {
	return docstore.Key{Kind: domain.KindLoad, ID: id}.String()
}

// lockStable locks the keys produced by plan. plan reads outside the lock, so it is
// re-run once the keys are held; if it now needs keys that are not held the locks are
// dropped and the cycle repeats.
func lockStable(ctx context.Context, locks *keylock.Locker, plan func(ctx context.Context) ([]string, error)) (func(), error) {
	if locks == nil {
		return func() {}, nil
	}
	keys, err := plan(ctx)
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		unlock, err := locks.Lock(ctx, keys...)
		if err != nil {
			return nil, domain.StoreError("lock", err)
		}
		current, err := plan(ctx)
		if err != nil {
			unlock()
			return nil, err
		}
		if subset(current, keys) {
			return unlock, nil
		}
		unlock()
		keys = current
	}
	return nil, domain.StoreError("lock", fmt.Errorf("keys kept changing: %w", docstore.ErrTxConflict))
}

func subset(want, held []string) bool {
	set := make(map[string]struct{}, len(held))
	for _, k := range held {
		set[k] = struct{}{}
	}
	for _, k := range want {
		if _, ok := set[k]; !ok {
			return false
		}
	}
	return true
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span and ends it. It returns err unchanged.
func endSpan(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	return err
}
