package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollection = "bridge_kv"

// MongoStore — хранилище на MongoDB. Срок жизни записей обеспечивает
// TTL-индекс по полю expires_at.
type MongoStore struct {
	client *mongo.Client
	kv     *mongo.Collection
}

type mongoKV struct {
	Key       string     `bson:"_id"`
	Value     string     `bson:"value"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

// NewMongoStore подключается к MongoDB и создаёт TTL-индекс.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	if database == "" {
		database = "dfs_bridge"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, unavailable("mongo connect", err)
	}

	kv := client.Database(database).Collection(mongoCollection)
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	if _, err := kv.Indexes().CreateOne(connectCtx, indexModel); err != nil {
		client.Disconnect(context.Background())
		return nil, unavailable("mongo create ttl index", err)
	}

	return &MongoStore{client: client, kv: kv}, nil
}

// Get возвращает значение ключа. TTL-монитор MongoDB удаляет записи
// с задержкой, поэтому срок проверяется и при чтении.
func (s *MongoStore) Get(ctx context.Context, key string) (string, error) {
	var doc mongoKV
	err := s.kv.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", unavailable("mongo find", err)
	}
	if doc.ExpiresAt != nil && !time.Now().Before(*doc.ExpiresAt) {
		return "", ErrNotFound
	}
	return doc.Value, nil
}

// Put записывает значение (upsert).
func (s *MongoStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	doc := mongoKV{Key: key, Value: value}
	if ttl > 0 {
		t := time.Now().Add(ttl)
		doc.ExpiresAt = &t
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.kv.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return unavailable("mongo replace", err)
	}
	return nil
}

// Has проверяет наличие ключа.
func (s *MongoStore) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Ping проверяет соединение.
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return unavailable("mongo ping", err)
	}
	return nil
}

// Close отключает клиент.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
