package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/tieubaoca/pdf-chat-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoStatusRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStatusRepo connects to uri and stores records in database.collection.
func NewMongoStatusRepo(ctx context.Context, uri, database, collection string) (StatusRepo, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetBSONOptions(
			&options.BSONOptions{
				ObjectIDAsHexString: true,
			},
		))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "start_time", Value: 1}},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("creating status index: %w", err)
	}

	return &mongoStatusRepo{
		client:     client,
		collection: coll,
	}, nil
}

func (r *mongoStatusRepo) Put(ctx context.Context, record *types.StatusRecord) error {
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": record.FileID},
		record,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *mongoStatusRepo) Get(ctx context.Context, fileID string) (*types.StatusRecord, error) {
	var record types.StatusRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": fileID}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *mongoStatusRepo) Delete(ctx context.Context, fileIDs ...string) error {
	if len(fileIDs) == 0 {
		return nil
	}
	_, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": fileIDs}})
	return err
}

func (r *mongoStatusRepo) List(ctx context.Context) ([]*types.StatusRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*types.StatusRecord
	for cursor.Next(ctx) {
		var record types.StatusRecord
		if err := cursor.Decode(&record); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}
	return records, cursor.Err()
}

func (r *mongoStatusRepo) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
