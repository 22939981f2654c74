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

const collectionApplications = "provider_applications"

// applicationDoc adds the indexed "active" flag. It is true exactly while the
// application is a draft or pending, which lets a partial unique index on
// user_id enforce one in-progress application per user.
type applicationDoc struct {
	domain.ProviderApplication `bson:",inline"`
	Active                     bool `bson:"active"`
}

func isActive(s domain.ApplicationStatus) bool {
	return s == domain.StatusDraft || s == domain.StatusPending
}

// ApplicationRepository implements ports.ApplicationRepository using MongoDB.
type ApplicationRepository struct {
	col *mongo.Collection
}

func NewApplicationRepository(db *mongo.Database) *ApplicationRepository {
	return &ApplicationRepository{col: db.Collection(collectionApplications)}
}

// Create inserts a new application document.
func (r *ApplicationRepository) Create(ctx context.Context, app *domain.ProviderApplication) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := applicationDoc{ProviderApplication: *app, Active: isActive(app.Status)}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrActiveApplication
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*domain.ProviderApplication, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.decodeOne(r.col.FindOne(ctx, bson.M{"_id": id}))
}

// FindLatestByUser retrieves the most recently created application of userID.
func (r *ApplicationRepository) FindLatestByUser(ctx context.Context, userID string) (*domain.ProviderApplication, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.decodeOne(r.col.FindOne(ctx, bson.M{"user_id": userID}, opts))
}

func (r *ApplicationRepository) ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]*domain.ProviderApplication, error) {
	return r.list(ctx, bson.M{"status": string(status)})
}

// ListByStatusInCategory matches applications whose categories contain category.
func (r *ApplicationRepository) ListByStatusInCategory(ctx context.Context, status domain.ApplicationStatus, category domain.ServiceCategory) ([]*domain.ProviderApplication, error) {
	return r.list(ctx, bson.M{"status": string(status), "categories": string(category)})
}

func (r *ApplicationRepository) list(ctx context.Context, filter bson.M) ([]*domain.ProviderApplication, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer cur.Close(ctx)

	var docs []applicationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	out := make([]*domain.ProviderApplication, 0, len(docs))
	for i := range docs {
		app := docs[i].ProviderApplication
		out = append(out, &app)
	}
	return out, nil
}

// UpdateDraft overwrites the editable fields, guarded by status == draft.
func (r *ApplicationRepository) UpdateDraft(ctx context.Context, app *domain.ProviderApplication) (*domain.ProviderApplication, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": app.ID, "status": string(domain.StatusDraft)}
	update := bson.M{"$set": bson.M{
		"location":     app.Location,
		"categories":   app.Categories,
		"cid":          app.CitizenID,
		"pricing":      app.Pricing,
		"certificates": app.Certificates,
		"updated_at":   app.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	updated, err := r.decodeOne(r.col.FindOneAndUpdate(ctx, filter, update, opts))
	if errors.Is(err, domain.ErrApplicationNotFound) {
		current, ferr := r.FindByID(ctx, app.ID)
		if ferr != nil {
			return nil, ferr
		}
		return nil, &domain.ConflictError{ID: current.ID, Current: current.Status}
	}
	return updated, err
}

// CompareAndSwapStatus applies change in a single FindOneAndUpdate filtered on
// the expected status. When the filter misses, the current record is
// returned with swapped == false.
func (r *ApplicationRepository) CompareAndSwapStatus(ctx context.Context, change domain.StatusChange) (*domain.ProviderApplication, bool, error) {
	if !change.Expected.CanTransitionTo(change.Next) {
		return nil, false, fmt.Errorf("%w (from %s to %s)", domain.ErrInvalidTransition, change.Expected, change.Next)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"status":     string(change.Next),
		"active":     isActive(change.Next),
		"updated_at": change.At,
	}
	update := bson.M{"$set": set}
	switch change.Next {
	case domain.StatusPending:
		set["submitted_at"] = change.At
	case domain.StatusDraft:
		update["$unset"] = bson.M{"submitted_at": ""}
	case domain.StatusApproved, domain.StatusRejected:
		set["decided_at"] = change.At
		set["decided_by"] = change.Actor
		if change.RejectReason != "" {
			set["reject_reason"] = change.RejectReason
		}
	}

	filter := bson.M{"_id": change.ID, "status": string(change.Expected)}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	updated, err := r.decodeOne(r.col.FindOneAndUpdate(ctx, filter, update, opts))
	if err == nil {
		return updated, true, nil
	}
	if !errors.Is(err, domain.ErrApplicationNotFound) {
		return nil, false, fmt.Errorf("swap application status: %w", err)
	}

	current, err := r.FindByID(ctx, change.ID)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

// EnsureIndexes creates the indexes used by the workflow queries, including
// the partial unique index on in-progress applications.
func (r *ApplicationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}).
				SetName("one_active_application_per_user"),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "categories", Value: 1}, {Key: "created_at", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *ApplicationRepository) decodeOne(res *mongo.SingleResult) (*domain.ProviderApplication, error) {
	var doc applicationDoc
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, err
	}
	app := doc.ProviderApplication
	return &app, nil
}
