package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxAddAttempts = 5

var (
	ErrCartNotFound = errors.New("cart not found")
	errAddContended = errors.New("cart kept changing under concurrent adds")
)

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *MongoRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, domain.Persistence("get cart", err)
	}

	return &cart, nil
}

// AddItem never reads the cart before writing. The increment only matches a
// cart already holding the product; the push only matches a cart without it
// and upserts a new cart otherwise. When a concurrent add wins the race the
// upsert collides with the unique user_id index and the loop starts over.
func (m *MongoRepository) AddItem(ctx context.Context, userID string, productID int64) error {
	for attempt := 0; attempt < maxAddAttempts; attempt++ {
		now := time.Now().UTC()

		res, err := m.collection.UpdateOne(ctx,
			bson.M{"user_id": userID, "items.product_id": productID},
			bson.M{
				"$inc": bson.M{"items.$.quantity": 1},
				"$set": bson.M{"updated_at": now},
			})
		if err != nil {
			return domain.Persistence("increment cart item", err)
		}
		if res.MatchedCount > 0 {
			return nil
		}

		item := domain.CartItem{
			ID:        uuid.NewString(),
			ProductID: productID,
			Quantity:  1,
			AddedAt:   now,
		}
		_, err = m.collection.UpdateOne(ctx,
			bson.M{"user_id": userID, "items.product_id": bson.M{"$ne": productID}},
			bson.M{
				"$push":        bson.M{"items": item},
				"$set":         bson.M{"updated_at": now},
				"$setOnInsert": bson.M{"created_at": now},
			},
			options.Update().SetUpsert(true))
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return domain.Persistence("push cart item", err)
		}
	}

	return domain.Persistence("add cart item", fmt.Errorf("user %s product %d: %w", userID, productID, errAddContended))
}

func (m *MongoRepository) RemoveItem(ctx context.Context, userID string, entryID string) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$pull": bson.M{
			"items": bson.M{"entry_id": entryID},
		},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	if _, err := m.collection.UpdateOne(ctx, filter, update); err != nil {
		return domain.Persistence("remove cart item", err)
	}
	return nil
}

func (m *MongoRepository) ClearCart(ctx context.Context, userID string) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$set": bson.M{"items": bson.A{}, "updated_at": time.Now().UTC()},
	}

	if _, err := m.collection.UpdateOne(ctx, filter, update); err != nil {
		return domain.Persistence("clear cart", err)
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
