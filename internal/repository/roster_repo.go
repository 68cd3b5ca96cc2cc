package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

type RosterRepo interface {
	EnrolledStudents(ctx context.Context, batchID string) ([]string, error)
}

type batchDoc struct {
	ID         string   `bson:"_id"`
	StudentIDs []string `bson:"studentIds"`
}

type rosterRepo struct {
	collection *mongo.Collection
}

// NewRosterRepo reads batch enrollment from the platform's batches
// collection. This service never writes it.
func NewRosterRepo(db *mongo.Database) RosterRepo {
	return &rosterRepo{
		collection: db.Collection("batches"),
	}
}

func (r *rosterRepo) EnrolledStudents(ctx context.Context, batchID string) ([]string, error) {
	var doc batchDoc
	err := r.collection.FindOne(ctx, map[string]interface{}{"_id": batchID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return []string{}, nil
		}
		return nil, err
	}
	return doc.StudentIDs, nil
}
