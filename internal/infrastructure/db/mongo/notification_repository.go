package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/druksewa/marketplace/internal/core/domain"
)

const (
	collectionNotifications = "notifications"
	collectionCounters      = "counters"
	notificationCounterID   = "notifications"
)

// NotificationRepository implements ports.NotificationLog using MongoDB. The
// sequence number of each entry comes from an atomically incremented counter
// document so readers can page with an "after" cursor.
type NotificationRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		col:      db.Collection(collectionNotifications),
		counters: db.Collection(collectionCounters),
	}
}

// Append assigns the next sequence number to n and inserts it. On a replica
// set the counter bump and the insert share a transaction, so an entry never
// becomes visible before the entries numbered below it. A standalone server
// has no transactions; there the notification service serializes appends.
func (r *NotificationRepository) Append(ctx context.Context, n *domain.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	sess, err := r.col.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, r.insertNext(sc, n)
	})
	if transactionsUnsupported(err) {
		return r.insertNext(ctx, n)
	}
	return err
}

func (r *NotificationRepository) insertNext(ctx context.Context, n *domain.Notification) error {
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return err
	}
	n.Seq = seq

	if _, err := r.col.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// transactionsUnsupported matches IllegalOperation, returned by a standalone
// mongod for any transactional write.
func transactionsUnsupported(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(20)
}

// ListByRole returns the role-wide entries; entries addressed to a single
// user are excluded.
func (r *NotificationRepository) ListByRole(ctx context.Context, role domain.Role, afterSeq int64) ([]*domain.Notification, error) {
	return r.list(ctx, bson.M{
		"recipient_role":    string(role),
		"recipient_user_id": bson.M{"$exists": false},
		"seq":               bson.M{"$gt": afterSeq},
	})
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, afterSeq int64) ([]*domain.Notification, error) {
	return r.list(ctx, bson.M{
		"recipient_user_id": userID,
		"seq":               bson.M{"$gt": afterSeq},
	})
}

// EnsureIndexes creates the indexes on the notifications collection.
func (r *NotificationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "recipient_role", Value: 1}, {Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "recipient_user_id", Value: 1}, {Key: "seq", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *NotificationRepository) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": notificationCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next notification seq: %w", err)
	}
	return counter.Seq, nil
}

func (r *NotificationRepository) list(ctx context.Context, filter bson.M) ([]*domain.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]*domain.Notification, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}
