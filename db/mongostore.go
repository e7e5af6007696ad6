package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"jobconnect/models"
	"jobconnect/store"
)

var _ store.Store = (*Mongo)(nil)

// helper to detect duplicate key errors from Mongo writes
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return mongo.IsDuplicateKeyError(err)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := []T{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func regexFilter(q string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
}

// ---- users ----

func (m *Mongo) CreateUser(ctx context.Context, u *models.User) error {
	if _, err := m.UserCollection.InsertOne(ctx, u); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("user %s: %w", u.Phone, store.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (m *Mongo) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := m.UserCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (m *Mongo) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var u models.User
	if err := m.UserCollection.FindOne(ctx, bson.M{"phone": phone}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (m *Mongo) GetUsers(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := findAll[models.User](ctx, m.UserCollection, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"inbox": 0}))
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (m *Mongo) UpdateUser(ctx context.Context, id string, fields map[string]any) (*models.User, error) {
	var u models.User
	err := m.UserCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("user %s: %w", id, store.ErrDuplicate)
		}
		return nil, notFound(err)
	}
	return &u, nil
}

// ---- jobs ----

func (m *Mongo) CreateJob(ctx context.Context, j *models.JobListing) error {
	if _, err := m.JobListingCollection.InsertOne(ctx, j); err != nil {
		if isDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (m *Mongo) GetJob(ctx context.Context, id string) (*models.JobListing, error) {
	var j models.JobListing
	if err := m.JobListingCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&j); err != nil {
		return nil, notFound(err)
	}
	return &j, nil
}

func (m *Mongo) GetJobs(ctx context.Context, ids []string) (map[string]models.JobListing, error) {
	out := make(map[string]models.JobListing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	jobs, err := findAll[models.JobListing](ctx, m.JobListingCollection, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		out[j.ID] = j
	}
	return out, nil
}

func jobFilter(f store.JobFilter) bson.M {
	filter := bson.M{}
	if f.OwnerID != "" {
		filter["userId"] = f.OwnerID
	}
	if f.Query != "" {
		rx := regexFilter(f.Query)
		filter["$or"] = bson.A{
			bson.M{"title": rx},
			bson.M{"company": rx},
			bson.M{"description": rx},
			bson.M{"position": rx},
			bson.M{"skills": rx},
		}
	}
	if f.Location != "" {
		filter["location"] = regexFilter(f.Location)
	}
	if f.Type != "" {
		filter["type"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.Type) + "$", "$options": "i"}
	}
	if f.Skill != "" {
		filter["skills"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.Skill) + "$", "$options": "i"}
	}
	if f.MinRate != nil || f.MaxRate != nil {
		rate := bson.M{}
		if f.MinRate != nil {
			rate["$gte"] = *f.MinRate
		}
		if f.MaxRate != nil {
			rate["$lte"] = *f.MaxRate
		}
		filter["rate"] = rate
	}
	return filter
}

func (m *Mongo) ListJobs(ctx context.Context, f store.JobFilter) ([]models.JobListing, int64, error) {
	filter := jobFilter(f)
	opts := options.Find().SetSort(bson.D{{Key: "postedDate", Value: -1}, {Key: "_id", Value: -1}})
	if f.Skip > 0 {
		opts.SetSkip(f.Skip)
	}
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	jobs, err := findAll[models.JobListing](ctx, m.JobListingCollection, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := m.JobListingCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (m *Mongo) UpdateJob(ctx context.Context, id, ownerID string, fields map[string]any) (*models.JobListing, error) {
	var j models.JobListing
	err := m.JobListingCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "userId": ownerID},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&j)
	if err != nil {
		return nil, notFound(err)
	}
	return &j, nil
}

func (m *Mongo) DeleteJob(ctx context.Context, id, ownerID string) error {
	res, err := m.JobListingCollection.DeleteOne(ctx, bson.M{"_id": id, "userId": ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---- applications ----

func (m *Mongo) CreateApplication(ctx context.Context, a *models.Application) error {
	if _, err := m.ApplicationCollection.InsertOne(ctx, a); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("application %s: %w", a.ID, store.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (m *Mongo) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	var a models.Application
	if err := m.ApplicationCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (m *Mongo) listApplications(ctx context.Context, filter bson.M) ([]models.Application, error) {
	return findAll[models.Application](ctx, m.ApplicationCollection, filter,
		options.Find().SetSort(bson.D{{Key: "appliedDate", Value: 1}, {Key: "_id", Value: 1}}))
}

func (m *Mongo) ListApplicationsByJob(ctx context.Context, jobID string) ([]models.Application, error) {
	return m.listApplications(ctx, bson.M{"jobId": jobID})
}

func (m *Mongo) ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]models.Application, error) {
	return m.listApplications(ctx, bson.M{"applicantId": applicantID})
}

func (m *Mongo) ListApplicationsByEmployer(ctx context.Context, employerID string) ([]models.Application, error) {
	return m.listApplications(ctx, bson.M{"employerId": employerID})
}

func (m *Mongo) GetApplicationsByIDs(ctx context.Context, ids []string) (map[string]models.Application, error) {
	out := make(map[string]models.Application, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	apps, err := findAll[models.Application](ctx, m.ApplicationCollection, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, a := range apps {
		out[a.ID] = a
	}
	return out, nil
}

func (m *Mongo) UpdateApplicationStatus(ctx context.Context, id string, from, to models.ApplicationStatus, at time.Time) (*models.Application, error) {
	var a models.Application
	err := m.ApplicationCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&a)
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	// Tell a vanished application apart from a status that moved underneath us.
	n, cerr := m.ApplicationCollection.CountDocuments(ctx, bson.M{"_id": id})
	if cerr != nil {
		return nil, cerr
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrConflict
}

func (m *Mongo) DeleteApplication(ctx context.Context, id string) error {
	res, err := m.ApplicationCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (m *Mongo) DeleteApplicationsByJob(ctx context.Context, jobID string) (int64, error) {
	res, err := m.ApplicationCollection.DeleteMany(ctx, bson.M{"jobId": jobID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ---- messages ----

// messageDoc is a stored message plus its insertion sequence. seq breaks
// createdAt ties so the newest insert lists first, as it does in memstore.
type messageDoc struct {
	*models.Message `bson:",inline"`
	Seq             primitive.ObjectID `bson:"seq"`
}

var messageSort = bson.D{{Key: "createdAt", Value: -1}, {Key: "seq", Value: -1}}

func messageDocs(msgs []*models.Message) []any {
	docs := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		docs = append(docs, messageDoc{Message: msg, Seq: primitive.NewObjectID()})
	}
	return docs
}

func (m *Mongo) InsertMessages(ctx context.Context, msgs ...*models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if _, err := m.MessagesCollection.InsertMany(ctx, messageDocs(msgs)); err != nil {
		if isDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (m *Mongo) ListMessages(ctx context.Context, f store.MessageFilter) ([]models.Message, error) {
	filter := bson.M{}
	if f.ReceiverID != "" {
		filter["receiverId"] = f.ReceiverID
	}
	if f.SenderID != "" {
		filter["senderId"] = f.SenderID
	}
	if f.UnreadOnly {
		filter["isRead"] = false
	}
	return findAll[models.Message](ctx, m.MessagesCollection, filter,
		options.Find().SetSort(messageSort))
}

func (m *Mongo) MarkRead(ctx context.Context, id, receiverID string) error {
	res, err := m.MessagesCollection.UpdateOne(ctx,
		bson.M{"_id": id, "receiverId": receiverID},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (m *Mongo) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	return m.MessagesCollection.CountDocuments(ctx, bson.M{"receiverId": receiverID, "isRead": false})
}
