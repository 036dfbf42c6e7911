package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/producthunt/apiserver/types"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

var (
	// ErrInvalidInput is returned for malformed ids, missing fields and bad values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidStatus is returned when a moderation status is not accepted or rejected.
	ErrInvalidStatus = errors.New("invalid status")
)

// EventPublisher receives change notifications. Publishing is best effort and
// never fails the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event types.Event)
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, types.Event) {}

func publisherOrDiscard(events EventPublisher) EventPublisher {
	if events == nil {
		return discardPublisher{}
	}
	return events
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// parseID validates an opaque identifier and returns its canonical form.
func parseID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", invalidInput("malformed id %q", raw)
	}
	return id.String(), nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func cleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, tag)
	}
	return cleaned
}
