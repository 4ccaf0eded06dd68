package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BartekS5/eventsync/pkg/logger"
	"github.com/BartekS5/eventsync/pkg/utils"
)

const mongoCollection = "sync_checkpoints"

// MongoStore keeps one document per checkpoint name.
type MongoStore struct {
	Client       *mongo.Client
	Database     string
	Name         string
	DefaultStart int64
}

func NewMongoStore(client *mongo.Client, database, name string, defaultStart int64) *MongoStore {
	return &MongoStore{Client: client, Database: database, Name: name, DefaultStart: defaultStart}
}

func (m *MongoStore) coll() *mongo.Collection {
	return m.Client.Database(m.Database).Collection(mongoCollection)
}

func (m *MongoStore) Load(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var doc bson.M
	err := m.coll().FindOne(ctx, bson.M{"_id": m.Name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		logger.Infof("No checkpoint %q in MongoDB, starting from %s", m.Name, Describe(m.DefaultStart))
		return m.DefaultStart, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read checkpoint %q: %w", m.Name, err)
	}

	ms, err := utils.ConvertToInt64(doc["value_ms"])
	if err != nil {
		logger.Warnf("Ignoring corrupt checkpoint %q in MongoDB: %v", m.Name, err)
		return m.DefaultStart, nil
	}
	return ms, nil
}

func (m *MongoStore) Save(ctx context.Context, ms int64) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	doc := bson.M{
		"_id":        m.Name,
		"value_ms":   ms,
		"rendered":   Describe(ms),
		"updated_at": time.Now().UTC(),
	}
	_, err := m.coll().ReplaceOne(ctx, bson.M{"_id": m.Name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint %q: %w", m.Name, err)
	}
	return nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}
