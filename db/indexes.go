package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateIndexes is safe to call on every start; existing indexes are kept.
func (m *Mongo) CreateIndexes(ctx context.Context) error {
	if _, err := m.UserCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "phone", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_phone"),
	}); err != nil {
		return err
	}

	if _, err := m.JobListingCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "postedDate", Value: -1}}, Options: options.Index().SetName("owner_posted")},
		{Keys: bson.D{{Key: "postedDate", Value: -1}}, Options: options.Index().SetName("posted")},
	}); err != nil {
		return err
	}

	// The (jobId, applicantId) pair is what stops duplicate applications.
	if _, err := m.ApplicationCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "jobId", Value: 1}, {Key: "applicantId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_job_applicant"),
		},
		{Keys: bson.D{{Key: "applicantId", Value: 1}, {Key: "appliedDate", Value: 1}}, Options: options.Index().SetName("applicant")},
		{Keys: bson.D{{Key: "employerId", Value: 1}, {Key: "appliedDate", Value: 1}}, Options: options.Index().SetName("employer")},
	}); err != nil {
		return err
	}

	_, err := m.MessagesCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "receiverId", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "seq", Value: -1}}, Options: options.Index().SetName("inbox")},
		{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "seq", Value: -1}}, Options: options.Index().SetName("sent")},
	})
	return err
}
