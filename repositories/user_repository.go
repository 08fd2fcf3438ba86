package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/growvest/growvest_backend/models"
	"github.com/growvest/growvest_backend/services"
)

// UserRepository implements services.UserStore on MongoDB. The referral
// graph lives on the users collection as the indexed referralId edge, so
// ChildrenOf is a single $in lookup per BFS frontier.
type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection("users")}
}

func (r *UserRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"referralCode": code}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Insert(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return user.ID, nil
}

func (r *UserRepository) SetReferrer(ctx context.Context, id, referrerID primitive.ObjectID) error {
	_, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"referralId": referrerID,
			"updatedAt":  time.Now(),
		},
	})
	return err
}

func (r *UserRepository) SetTier(ctx context.Context, id primitive.ObjectID, level *string, subLevel *int) error {
	update := bson.M{"updatedAt": time.Now()}
	if level == nil {
		_, err := r.collection.UpdateByID(ctx, id, bson.M{
			"$set":   update,
			"$unset": bson.M{"investmentLevel": "", "investmentSubLevel": ""},
		})
		return err
	}
	update["investmentLevel"] = *level
	update["investmentSubLevel"] = *subLevel
	_, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": update})
	return err
}

// IncBalance is the only write path for the denormalized balance cache:
// a single-field atomic $inc, never a read-modify-write.
func (r *UserRepository) IncBalance(ctx context.Context, id primitive.ObjectID, field string, delta float64) error {
	_, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{field: delta},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	return err
}

func (r *UserRepository) SetBalances(ctx context.Context, id primitive.ObjectID, b models.Balances) error {
	_, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"depositBalance":        b.Deposit,
			"profitBalance":         b.Profit,
			"referralCreditBalance": b.Credit,
			"rewardBalance":         b.Reward,
			"updatedAt":             time.Now(),
		},
	})
	return err
}

func (r *UserRepository) ChildrenOf(ctx context.Context, parents []primitive.ObjectID) ([]models.User, error) {
	if len(parents) == 0 {
		return nil, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"referralId": bson.M{"$in": parents}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var children []models.User
	if err := cursor.All(ctx, &children); err != nil {
		return nil, err
	}
	return children, nil
}

func referralFilterQuery(f services.ReferralFilter) bson.M {
	query := bson.M{}
	if f.ActiveOnly {
		query["isActive"] = true
	}
	if f.CreatedAfter != nil {
		query["createdAt"] = bson.M{"$gte": *f.CreatedAfter}
	}
	return query
}

func (r *UserRepository) CountChildren(ctx context.Context, parent primitive.ObjectID, f services.ReferralFilter) (int64, error) {
	query := referralFilterQuery(f)
	query["referralId"] = parent
	return r.collection.CountDocuments(ctx, query)
}

func (r *UserRepository) CountByIDs(ctx context.Context, ids []primitive.ObjectID, f services.ReferralFilter) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := referralFilterQuery(f)
	query["_id"] = bson.M{"$in": ids}
	return r.collection.CountDocuments(ctx, query)
}

func (r *UserRepository) ListInvested(ctx context.Context, page, pageSize int64) ([]models.User, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip((page - 1) * pageSize).
		SetLimit(pageSize)

	cursor, err := r.collection.Find(ctx, bson.M{
		"isActive":        true,
		"investmentLevel": bson.M{"$ne": nil},
		"depositBalance":  bson.M{"$gt": 0},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) ListIDs(ctx context.Context, page, pageSize int64) ([]primitive.ObjectID, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip((page - 1) * pageSize).
		SetLimit(pageSize).
		SetProjection(bson.M{"_id": 1})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}
