package domain

import "context"

// EventPublisher interface for publishing domain events
type EventPublisher interface {
	PublishSearchRequested(ctx context.Context, event *SearchEvent) error
	PublishAnalysisCompleted(ctx context.Context, event *AnalysisEvent) error
	Close() error
}
