package audit

import (
	"chembot/entity"
	"chembot/internal/config"
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionDecisions  = "payment_decisions"
	collectionBroadcasts = "broadcasts"
	collectionMessages   = "operator_messages"
)

// MongoDB is an optional trail of operator-facing activity. It is written
// best-effort: the registration flow never blocks on it. Nil when disabled
// in configuration.
type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	return &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(m.ctx)
}

// Save appends a document to the named collection.
func (m *MongoDB) Save(collection string, value interface{}) error {
	if m == nil {
		return nil
	}
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	_, err = connection.Database(m.database).Collection(collection).InsertOne(m.ctx, value)
	return err
}

// SaveMessage records a message relayed to the operator group.
func (m *MongoDB) SaveMessage(msg *entity.OperatorMessage) error {
	return m.Save(collectionMessages, msg)
}

// SaveDecision records the final state of a payment request, upserting by
// request id so a retried write cannot duplicate the trail.
func (m *MongoDB) SaveDecision(req *entity.PaymentRequest) error {
	if m == nil {
		return nil
	}
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionDecisions)
	filter := bson.D{{Key: "request_id", Value: req.RequestId}}
	update := bson.D{{Key: "$set", Value: req}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}

// SaveBroadcast records one broadcast batch with its delivery counts.
func (m *MongoDB) SaveBroadcast(batchId string, total, failed int) error {
	return m.Save(collectionBroadcasts, bson.D{
		{Key: "batch_id", Value: batchId},
		{Key: "total", Value: total},
		{Key: "failed", Value: failed},
		{Key: "sent_at", Value: time.Now()},
	})
}
