// Package mongo keeps the index in two collections: one document per term
// holding its postings array, and one document per indexed website.
//
//	index:    {term, documents: [{url, tf, docLength}]}
//	websites: {url, docLength}
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/config"
)

type termDocument struct {
	Term      string            `bson:"term"`
	Documents index.PostingList `bson:"documents"`
}

type corpusAggregate struct {
	Count int64   `bson:"count"`
	Avg   float64 `bson:"avg"`
}

type Store struct {
	client   *mongo.Client
	terms    *mongo.Collection
	websites *mongo.Collection
}

// Open connects to cfg.URI and ensures the unique term and url indexes.
func Open(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client:   client,
		terms:    db.Collection(cfg.IndexCollection),
		websites: db.Collection(cfg.DocumentsCollection),
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	if _, err := s.terms.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "term", Value: 1}},
		Options: unique,
	}); err != nil {
		return fmt.Errorf("creating term index: %w", err)
	}
	if _, err := s.websites.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: unique,
	}); err != nil {
		return fmt.Errorf("creating url index: %w", err)
	}
	return nil
}

func (s *Store) Postings(ctx context.Context, term string) (index.PostingList, error) {
	var doc termDocument
	err := s.terms.FindOne(ctx,
		bson.M{"term": term},
		options.FindOne().SetProjection(bson.M{"documents": 1}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return index.PostingList{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding postings for %q: %w", term, err)
	}
	if doc.Documents == nil {
		return index.PostingList{}, nil
	}
	return doc.Documents, nil
}

func (s *Store) ReplacePostings(ctx context.Context, term string, postings index.PostingList) error {
	if postings == nil {
		postings = index.PostingList{}
	}
	_, err := s.terms.UpdateOne(ctx,
		bson.M{"term": term},
		bson.M{"$set": bson.M{"documents": postings}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("writing postings for %q: %w", term, err)
	}
	return nil
}

// RegisterDocument upserts the website and asks for the pre-image: no
// pre-image means the url was inserted by this call.
func (s *Store) RegisterDocument(ctx context.Context, url string, length int) (bool, error) {
	err := s.websites.FindOneAndUpdate(ctx,
		bson.M{"url": url},
		bson.M{"$set": bson.M{"docLength": length, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before),
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("registering document %s: %w", url, err)
	}
	return false, nil
}

func (s *Store) Stats(ctx context.Context) (index.Stats, error) {
	cur, err := s.websites.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: "$docLength"}}},
		}}},
	})
	if err != nil {
		return index.Stats{}, fmt.Errorf("aggregating corpus stats: %w", err)
	}
	defer cur.Close(ctx)

	var rows []corpusAggregate
	if err := cur.All(ctx, &rows); err != nil {
		return index.Stats{}, fmt.Errorf("decoding corpus stats: %w", err)
	}
	if len(rows) == 0 {
		return index.Stats{}, nil
	}
	return index.Stats{
		TotalDocuments:        rows[0].Count,
		AverageDocumentLength: rows[0].Avg,
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// URLs lists every registered website. The crawler uses it as its seed list
// when none is configured.
func (s *Store) URLs(ctx context.Context) ([]string, error) {
	cur, err := s.websites.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"url": 1, "_id": 0}))
	if err != nil {
		return nil, fmt.Errorf("listing websites: %w", err)
	}
	defer cur.Close(ctx)

	var urls []string
	for cur.Next(ctx) {
		var site struct {
			URL string `bson:"url"`
		}
		if err := cur.Decode(&site); err != nil {
			return nil, fmt.Errorf("decoding website: %w", err)
		}
		urls = append(urls, site.URL)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("listing websites: %w", err)
	}
	return urls, nil
}
