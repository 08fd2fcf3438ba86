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

// ProgramRepository implements services.ProgramStore and
// services.ProfitScheduleStore on MongoDB.
type ProgramRepository struct {
	programs  *mongo.Collection
	schedules *mongo.Collection
}

func NewProgramRepository(db *mongo.Database) *ProgramRepository {
	return &ProgramRepository{
		programs:  db.Collection("programs"),
		schedules: db.Collection("profit_schedules"),
	}
}

func (r *ProgramRepository) ByLevel(ctx context.Context, level string) (*models.Program, error) {
	var program models.Program
	err := r.programs.FindOne(ctx, bson.M{"level": level}).Decode(&program)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &program, nil
}

func (r *ProgramRepository) All(ctx context.Context) ([]models.Program, error) {
	opts := options.Find().SetSort(bson.D{{Key: "level", Value: 1}})
	cursor, err := r.programs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var programs []models.Program
	if err := cursor.All(ctx, &programs); err != nil {
		return nil, err
	}
	return programs, nil
}

// Current returns the newest profit schedule by version.
func (r *ProgramRepository) Current(ctx context.Context) (*models.ProfitSchedule, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	var schedule models.ProfitSchedule
	err := r.schedules.FindOne(ctx, bson.M{}, opts).Decode(&schedule)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// SaveSchedule inserts a new schedule version (admin config updates).
func (r *ProgramRepository) SaveSchedule(ctx context.Context, schedule *models.ProfitSchedule) (primitive.ObjectID, error) {
	if schedule.ID.IsZero() {
		schedule.ID = primitive.NewObjectID()
	}
	if schedule.Version == 0 {
		current, err := r.Current(ctx)
		if err != nil {
			return primitive.NilObjectID, err
		}
		if current != nil {
			schedule.Version = current.Version + 1
		} else {
			schedule.Version = 1
		}
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now()
	}
	_, err := r.schedules.InsertOne(ctx, schedule)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return schedule.ID, nil
}
