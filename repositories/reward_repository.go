package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/growvest/growvest_backend/models"
)

// RewardRepository implements services.RewardStore on MongoDB.
type RewardRepository struct {
	collection *mongo.Collection
}

func NewRewardRepository(db *mongo.Database) *RewardRepository {
	return &RewardRepository{collection: db.Collection("rewards")}
}

func (r *RewardRepository) Insert(ctx context.Context, reward *models.Reward) (primitive.ObjectID, error) {
	if reward.ID.IsZero() {
		reward.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, reward)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return reward.ID, nil
}

func (r *RewardRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.Reward, error) {
	var reward models.Reward
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reward)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *RewardRepository) Latest(ctx context.Context, userID primitive.ObjectID) (*models.Reward, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	var reward models.Reward
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}, opts).Decode(&reward)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

// MarkClaimed flips isClaimed exactly once; the amount is never touched.
func (r *RewardRepository) MarkClaimed(ctx context.Context, id primitive.ObjectID) (*models.Reward, error) {
	var reward models.Reward
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "isClaimed": false},
		bson.M{"$set": bson.M{"isClaimed": true, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&reward)
	if err == mongo.ErrNoDocuments {
		return nil, models.ErrStaleTransition
	}
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *RewardRepository) Settle(ctx context.Context, id primitive.ObjectID, status, reason string) (*models.Reward, error) {
	update := bson.M{
		"status":    status,
		"updatedAt": time.Now(),
	}
	if reason != "" {
		update["reason"] = reason
	}

	var reward models.Reward
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&reward)
	if err == mongo.ErrNoDocuments {
		return nil, models.ErrStaleTransition
	}
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *RewardRepository) SumAmounts(ctx context.Context, userID primitive.ObjectID, statuses []string) (float64, error) {
	pipeline := []bson.M{
		{"$match": bson.M{
			"userId": userID,
			"status": bson.M{"$in": statuses},
		}},
		{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func (r *RewardRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, page, pageSize int64) ([]models.Reward, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * pageSize).
		SetLimit(pageSize)

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rewards []models.Reward
	if err := cursor.All(ctx, &rewards); err != nil {
		return nil, err
	}
	return rewards, nil
}
