package repository

import (
	"context"

	"edulearn/internal/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type AttendanceRepo interface {
	Save(ctx context.Context, record *model.AttendanceRecord) error
}

type attendanceRepo struct {
	collection *mongo.Collection
}

// NewAttendanceRepo is the attendance sink: it receives the final presence
// roster when a session ends.
func NewAttendanceRepo(db *mongo.Database) AttendanceRepo {
	return &attendanceRepo{
		collection: db.Collection("attendance"),
	}
}

func (r *attendanceRepo) Save(ctx context.Context, record *model.AttendanceRecord) error {
	_, err := r.collection.InsertOne(ctx, record)
	return err
}
