package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"agri-dashboard/internal/config"
	"agri-dashboard/internal/crops"
	"agri-dashboard/internal/models"
	"agri-dashboard/internal/observability"
	"agri-dashboard/internal/query"
)

// MongoStore reads yield records from a single collection. It owns the
// client and must be closed at shutdown.
type MongoStore struct {
	client       *mongo.Client
	coll         *mongo.Collection
	queryTimeout time.Duration
	logger       *slog.Logger
}

func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*MongoStore, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI).
		SetAppName("agri-dashboard").
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout).
		SetRetryReads(true).
		SetReadPreference(readpref.PrimaryPreferred())

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.PrimaryPreferred()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info("connected to mongo",
		"database", cfg.Name,
		"collection", cfg.Collection,
		"max_pool_size", cfg.MaxPoolSize,
	)

	coll := client.Database(cfg.Name).Collection(cfg.Collection)
	return newMongoStore(client, coll, cfg.QueryTimeout, logger), nil
}

func newMongoStore(client *mongo.Client, coll *mongo.Collection, queryTimeout time.Duration, logger *slog.Logger) *MongoStore {
	return &MongoStore{
		client:       client,
		coll:         coll,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
}

func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, done := s.begin(ctx, "ping")
	err := s.client.Ping(ctx, readpref.PrimaryPreferred())
	done(err)
	return err
}

// begin starts a traced, time-bounded database call. The returned func
// must be called with the call's error.
func (s *MongoStore) begin(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, span := observability.StartSpan(ctx, "mongo."+op)
	span.SetTag("collection", s.coll.Name())
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)

	return ctx, func(err error) {
		cancel()
		if err != nil {
			span.SetError(err)
		}
		span.Finish(s.logger)
		observability.ObserveQuery("mongo", op, err, span.Duration)
	}
}

// Find returns up to limit raw records matching f, without the internal id.
func (s *MongoStore) Find(ctx context.Context, f query.Filter, limit int64) (records []models.YieldRecord, err error) {
	ctx, done := s.begin(ctx, "find")
	defer func() { done(err) }()

	opts := options.Find().
		SetProjection(bson.D{{Key: "_id", Value: 0}}).
		SetLimit(limit).
		SetCollation(query.Collation())

	cursor, err := s.coll.Find(ctx, f.Predicate(), opts)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer cursor.Close(ctx)

	records = make([]models.YieldRecord, 0, limit)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

func (s *MongoStore) YearlyTotals(ctx context.Context, f query.Filter) (totals []models.YearlyTotals, err error) {
	ctx, done := s.begin(ctx, "aggregate.yearly")
	defer func() { done(err) }()

	cursor, err := s.coll.Aggregate(ctx, YearlyTotalsPipeline(f), options.Aggregate().SetCollation(query.Collation()))
	if err != nil {
		return nil, fmt.Errorf("aggregate yearly totals: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		y, err := decodeYearlyTotals(cursor.Current)
		if err != nil {
			return nil, fmt.Errorf("decode yearly totals: %w", err)
		}
		totals = append(totals, y)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate yearly totals: %w", err)
	}
	return totals, nil
}

func (s *MongoStore) TopVillages(ctx context.Context, c crops.Crop, limit int64) (ranking []models.VillageTotal, err error) {
	ctx, done := s.begin(ctx, "aggregate.top_villages")
	defer func() { done(err) }()

	cursor, err := s.coll.Aggregate(ctx, TopVillagesPipeline(c, limit))
	if err != nil {
		return nil, fmt.Errorf("aggregate top villages for %s: %w", c.Key, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		v, err := decodeVillageTotal(cursor.Current)
		if err != nil {
			return nil, fmt.Errorf("decode village total: %w", err)
		}
		ranking = append(ranking, v)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate top villages: %w", err)
	}
	return ranking, nil
}

// Distinct lists the distinct values of one grouping field, sorted.
func (s *MongoStore) Distinct(ctx context.Context, field string) (values []string, err error) {
	ctx, done := s.begin(ctx, "distinct")
	defer func() { done(err) }()

	raw, err := s.coll.Distinct(ctx, field, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", field, err)
	}
	return distinctStrings(raw), nil
}

func distinctStrings(raw []interface{}) []string {
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		switch x := v.(type) {
		case nil:
		case string:
			if x != "" {
				values = append(values, x)
			}
		case int32:
			values = append(values, strconv.Itoa(int(x)))
		case int64:
			values = append(values, strconv.FormatInt(x, 10))
		case float64:
			values = append(values, strconv.FormatFloat(x, 'f', -1, 64))
		default:
			values = append(values, fmt.Sprint(x))
		}
	}
	sort.Strings(values)
	return values
}
