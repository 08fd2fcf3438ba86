// config/db.go
package config

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectDB establishes connection to MongoDB
func ConnectDB() *mongo.Client {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = os.Getenv("MONGODB_URI")
	}

	// Only use a local fallback in development
	if mongoURI == "" {
		env := os.Getenv("ENV")
		if env == "development" || env == "dev" {
			mongoURI = "mongodb://localhost:27017"
		} else {
			log.Fatal("MONGO_URI or MONGODB_URI environment variable is required for production")
		}
	}

	log.Printf("Connecting to MongoDB at: %s", maskMongoURI(mongoURI))

	clientOptions := options.Client().ApplyURI(mongoURI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatal("MongoDB connection error:", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		log.Fatal("MongoDB ping error:", err)
	}

	log.Println("Connected to MongoDB")

	setupCollections(client)

	return client
}

// DBName returns the configured database name
func DBName() string {
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "growvest"
	}
	return dbName
}

// GetCollection returns MongoDB collection
func GetCollection(client *mongo.Client, collectionName string) *mongo.Collection {
	return client.Database(DBName()).Collection(collectionName)
}

// setupCollections ensures all necessary collections and indexes exist
func setupCollections(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := client.Database(DBName())

	collections := []string{"users", "transactions", "rewards", "ranks", "programs", "profit_schedules", "notifications"}
	for _, collName := range collections {
		db.CreateCollection(ctx, collName)
	}

	// Email and referral lookups on users
	userColl := db.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "referralCode", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			// The referral graph edge; every BFS frontier expansion hits this.
			Keys: bson.D{{Key: "referralId", Value: 1}},
		},
	}
	if _, err := userColl.Indexes().CreateMany(ctx, userIndexes); err != nil {
		log.Printf("Error creating user indexes: %v", err)
	}

	txColl := db.Collection("transactions")
	txIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "transactionType", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: 1}},
		},
		{
			// Idempotency guard for the daily distribution job: at most one
			// PROFIT transaction per user per period. Partial so ordinary
			// transactions without a profitPeriod are unaffected.
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "profitPeriod", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"transactionType": "PROFIT"}),
		},
	}
	if _, err := txColl.Indexes().CreateMany(ctx, txIndexes); err != nil {
		log.Printf("Error creating transaction indexes: %v", err)
	}

	rewardColl := db.Collection("rewards")
	rewardIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	}
	if _, err := rewardColl.Indexes().CreateOne(ctx, rewardIndex); err != nil {
		log.Printf("Error creating reward index: %v", err)
	}

	notifColl := db.Collection("notifications")
	notifIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	}
	if _, err := notifColl.Indexes().CreateOne(ctx, notifIndex); err != nil {
		log.Printf("Error creating notification index: %v", err)
	}

	log.Println("Database collections and indexes setup complete")
}

// maskMongoURI masks the password in MongoDB URI for logging
func maskMongoURI(uri string) string {
	if idx := strings.Index(uri, "@"); idx > 0 {
		if colonIdx := strings.LastIndex(uri[:idx], ":"); colonIdx > 0 {
			return uri[:colonIdx+1] + "***" + uri[idx:]
		}
	}
	return uri
}
