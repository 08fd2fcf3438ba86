// services/notification_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/gomail.v2"

	"github.com/growvest/growvest_backend/config"
	"github.com/growvest/growvest_backend/models"
	"github.com/growvest/growvest_backend/websocket"
)

// NotificationService is the fire-and-forget notification sink: in-app
// record, WebSocket push, FCM push and email, in that order. Delivery
// happens on a background goroutine and never affects the financial
// operation that triggered it; failures are logged only.
type NotificationService struct {
	db  *mongo.Database
	hub *websocket.Hub
}

func NewNotificationService(db *mongo.Database, hub *websocket.Hub) *NotificationService {
	return &NotificationService{db: db, hub: hub}
}

// Notify implements the Notifier interface.
func (s *NotificationService) Notify(userID primitive.ObjectID, notifType, title, message string, data interface{}) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.save(ctx, userID, notifType, title, message, data); err != nil {
			log.Printf("Failed to save notification for user %s: %v", userID.Hex(), err)
		}
		if s.hub != nil {
			if err := s.hub.SendToUser(userID, websocket.Event{
				Type:    notifType,
				Message: message,
				Data:    data,
				UserID:  userID.Hex(),
			}); err != nil {
				// Not connected is the normal case, no log needed.
				_ = err
			}
		}

		user, err := s.loadUser(ctx, userID)
		if err != nil {
			log.Printf("Failed to load user %s for notification delivery: %v", userID.Hex(), err)
			return
		}
		if user.FCMToken != "" {
			if err := s.sendPush(ctx, user.FCMToken, title, message, notifType); err != nil {
				log.Printf("Failed to send push notification to user %s: %v", userID.Hex(), err)
			}
		}
		if user.Email != "" {
			if err := s.sendEmail(user.Email, title, message); err != nil {
				log.Printf("Failed to send notification email to %s: %v", user.Email, err)
			}
		}
	}()
}

// save writes the in-app notification record.
func (s *NotificationService) save(ctx context.Context, userID primitive.ObjectID, notifType, title, message string, data interface{}) error {
	notification := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Data:      data,
		IsRead:    false,
		CreatedAt: time.Now(),
	}
	_, err := s.db.Collection("notifications").InsertOne(ctx, notification)
	return err
}

func (s *NotificationService) loadUser(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// sendPush delivers an FCM notification through the Firebase Admin SDK.
func (s *NotificationService) sendPush(ctx context.Context, token, title, message, notifType string) error {
	if config.FirebaseApp == nil {
		return fmt.Errorf("firebase app not initialized")
	}
	client, err := config.FirebaseApp.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging client: %w", err)
	}

	fcmMessage := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  message,
		},
		Data: map[string]string{
			"type":      notifType,
			"timestamp": time.Now().Format(time.RFC3339),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: "growvest_fcm_channel",
			},
		},
	}

	response, err := client.Send(ctx, fcmMessage)
	if err != nil {
		return fmt.Errorf("failed to send FCM notification: %w", err)
	}
	log.Printf("FCM notification sent: %s", response)
	return nil
}

// sendEmail delivers the notification by SMTP.
func (s *NotificationService) sendEmail(to, subject, body string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	if smtpHost == "" {
		return nil // email delivery not configured
	}
	smtpPort := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &smtpPort)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)
	return d.DialAndSend(m)
}

// List pages a user's in-app notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID primitive.ObjectID, page, pageSize int64) ([]models.Notification, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip((page - 1) * pageSize).
		SetLimit(pageSize)
	cursor, err := s.db.Collection("notifications").Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notifID primitive.ObjectID) error {
	result, err := s.db.Collection("notifications").UpdateOne(ctx,
		bson.M{"_id": notifID, "userId": userID},
		bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// MarkAllRead flags every unread notification for the user.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	result, err := s.db.Collection("notifications").UpdateMany(ctx,
		bson.M{"userId": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}
