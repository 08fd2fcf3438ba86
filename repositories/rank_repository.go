package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/growvest/growvest_backend/models"
)

// RankRepository implements services.RankStore on MongoDB. The rank catalog
// is static at runtime, read only.
type RankRepository struct {
	collection *mongo.Collection
}

func NewRankRepository(db *mongo.Database) *RankRepository {
	return &RankRepository{collection: db.Collection("ranks")}
}

func (r *RankRepository) All(ctx context.Context) ([]models.Rank, error) {
	opts := options.Find().SetSort(bson.D{{Key: "requiredSalesFrom", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ranks []models.Rank
	if err := cursor.All(ctx, &ranks); err != nil {
		return nil, err
	}
	return ranks, nil
}
