package service

import (
	"context"

	"edulearn/internal/model"
)

// BatchRoster resolves a batch to its enrolled student ids. Used only to
// authorize joins; the roster itself is owned by the platform's batch service.
type BatchRoster interface {
	EnrolledStudents(ctx context.Context, batchID string) ([]string, error)
}

// AttendanceSink receives the final presence roster when a session ends.
// Durable attendance storage lives outside this service.
type AttendanceSink interface {
	Save(ctx context.Context, record *model.AttendanceRecord) error
}

// SessionArchive persists session documents for the platform's reporting
// screens. Live session state never reads back from it.
type SessionArchive interface {
	Create(ctx context.Context, session *model.Session) error
	Update(ctx context.Context, session *model.Session) error
}
