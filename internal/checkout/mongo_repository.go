package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	users    *mongo.Collection
	sessions *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		users:    db.Collection("users"),
		sessions: db.Collection("checkout_sessions"),
	}
}

func (m *MongoRepository) CreateSession(ctx context.Context, session *domain.CheckoutSession) error {
	if _, err := m.sessions.InsertOne(ctx, session); err != nil {
		return domain.Persistence("insert checkout session", err)
	}
	return nil
}

func (m *MongoRepository) GetSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	var session domain.CheckoutSession
	err := m.sessions.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFoundf("checkout session %s", sessionID)
	}
	if err != nil {
		return nil, domain.Persistence("get checkout session", err)
	}
	return &session, nil
}

func (m *MongoRepository) CloseSession(ctx context.Context, sessionID string, status domain.CheckoutStatus, orderID string) (bool, error) {
	set := bson.M{"status": status, "updated_at": time.Now().UTC()}
	if orderID != "" {
		set["order_id"] = orderID
	}
	res, err := m.sessions.UpdateOne(ctx,
		bson.M{"_id": sessionID, "status": domain.CheckoutStatusOpen},
		bson.M{"$set": set})
	if err != nil {
		return false, domain.Persistence("close checkout session", err)
	}
	return res.ModifiedCount == 1, nil
}

func (m *MongoRepository) SetToken(ctx context.Context, userID, email, sessionID string) error {
	_, err := m.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"email": email, "checkout_session": sessionID}},
		options.Update().SetUpsert(true))
	if err != nil {
		return domain.Persistence("set checkout token", err)
	}
	return nil
}

func (m *MongoRepository) Token(ctx context.Context, userID string) (string, error) {
	var user domain.User
	err := m.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", domain.Persistence("get checkout token", err)
	}
	return user.CheckoutSession, nil
}

func (m *MongoRepository) ClearToken(ctx context.Context, userID, sessionID string) (bool, error) {
	res, err := m.users.UpdateOne(ctx,
		bson.M{"_id": userID, "checkout_session": sessionID},
		bson.M{"$unset": bson.M{"checkout_session": ""}})
	if err != nil {
		return false, domain.Persistence("clear checkout token", err)
	}
	return res.ModifiedCount == 1, nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	_, err := m.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
