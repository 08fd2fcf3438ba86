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

// LedgerRepository implements services.LedgerStore on MongoDB. The
// transactions collection is append-only; the only update ever issued is
// the one-time status settle. A unique partial index on
// (userId, profitPeriod) backs the distribution idempotency guard.
type LedgerRepository struct {
	collection *mongo.Collection
}

func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{collection: db.Collection("transactions")}
}

func (r *LedgerRepository) Insert(ctx context.Context, tx *models.Transaction) (primitive.ObjectID, error) {
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, tx)
	if mongo.IsDuplicateKeyError(err) {
		return primitive.NilObjectID, services.ErrDuplicateProfitPeriod
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	return tx.ID, nil
}

func (r *LedgerRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&tx)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Settle performs the single terminal transition. The filter matches only
// PENDING records, so a concurrent or repeated settle finds nothing and
// surfaces ErrStaleTransition instead of rewriting a terminal state.
func (r *LedgerRepository) Settle(ctx context.Context, id primitive.ObjectID, status, reason string) (*models.Transaction, error) {
	update := bson.M{
		"status":    status,
		"updatedAt": time.Now(),
	}
	if reason != "" {
		update["rejectionReason"] = reason
	}

	var tx models.Transaction
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&tx)
	if err == mongo.ErrNoDocuments {
		return nil, models.ErrStaleTransition
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *LedgerRepository) sum(ctx context.Context, match bson.M, field string) (float64, error) {
	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$" + field}}},
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

func (r *LedgerRepository) SumAmounts(ctx context.Context, userID primitive.ObjectID, txType string, statuses []string, since *time.Time) (float64, error) {
	match := bson.M{
		"userId":          userID,
		"transactionType": txType,
		"status":          bson.M{"$in": statuses},
	}
	if since != nil {
		match["createdAt"] = bson.M{"$gte": *since}
	}
	return r.sum(ctx, match, "amount")
}

func (r *LedgerRepository) SumWithdrawals(ctx context.Context, userID primitive.ObjectID, withdrawalType string, since *time.Time) (float64, error) {
	match := bson.M{
		"userId":          userID,
		"transactionType": models.TxTypeWithdrawal,
		"withdrawalType":  withdrawalType,
		"status":          bson.M{"$in": []string{models.StatusApproved, models.StatusPending}},
	}
	if since != nil {
		match["createdAt"] = bson.M{"$gte": *since}
	}
	return r.sum(ctx, match, "originalAmount")
}

func (r *LedgerRepository) FirstApprovedDepositAt(ctx context.Context, userIDs []primitive.ObjectID) (*time.Time, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	var tx models.Transaction
	err := r.collection.FindOne(ctx, bson.M{
		"userId":          bson.M{"$in": userIDs},
		"transactionType": models.TxTypeDeposit,
		"status":          models.StatusApproved,
	}, opts).Decode(&tx)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	createdAt := tx.CreatedAt
	return &createdAt, nil
}

func (r *LedgerRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, page, pageSize int64) ([]models.Transaction, error) {
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

	var txs []models.Transaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}
