package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mini-ai-studio/studio-api/internal/core/domain"
)

const generationsCollection = "generations"

type GenerationRepository struct {
	coll *mongo.Collection
}

func NewGenerationRepository(db *mongo.Database) *GenerationRepository {
	return &GenerationRepository{coll: db.Collection(generationsCollection)}
}

type mongoGeneration struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"user_id"`
	Prompt      string             `bson:"prompt"`
	ImagePath   string             `bson:"image_path"`
	SourceKey   string             `bson:"source_key,omitempty"`
	ContentType string             `bson:"content_type,omitempty"`
	SizeBytes   int64              `bson:"size_bytes,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (mg mongoGeneration) toDomain() domain.Generation {
	return domain.Generation{
		ID:          mg.ID.Hex(),
		UserID:      mg.UserID,
		Prompt:      mg.Prompt,
		ImagePath:   mg.ImagePath,
		SourceKey:   mg.SourceKey,
		ContentType: mg.ContentType,
		SizeBytes:   mg.SizeBytes,
		CreatedAt:   mg.CreatedAt.UTC(),
	}
}

// Create appends a generation record and fills in its ID.
func (r *GenerationRepository) Create(ctx context.Context, g *domain.Generation) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// BSON dates carry millisecond precision; truncate so the returned record
	// matches what a later read yields.
	createdAt := g.CreatedAt.UTC().Truncate(time.Millisecond)
	if createdAt.IsZero() {
		createdAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	doc := mongoGeneration{
		ID:          primitive.NewObjectID(),
		UserID:      g.UserID,
		Prompt:      g.Prompt,
		ImagePath:   g.ImagePath,
		SourceKey:   g.SourceKey,
		ContentType: g.ContentType,
		SizeBytes:   g.SizeBytes,
		CreatedAt:   createdAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return unavailable("insert generation", err)
	}

	g.ID = doc.ID.Hex()
	g.CreatedAt = createdAt
	return nil
}

// ListRecent returns the newest generations of userID. ObjectIDs grow with
// insertion order, so sorting on _id after created_at puts the later insert
// first when two records share a timestamp.
func (r *GenerationRepository) ListRecent(ctx context.Context, userID string, limit int) ([]domain.Generation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, unavailable("find generations", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoGeneration
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, unavailable("decode generations", err)
	}

	out := make([]domain.Generation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// DeleteAll empties the collection. Only tests call it.
func (r *GenerationRepository) DeleteAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return unavailable("delete generations", err)
	}
	return nil
}

// EnsureIndexes creates the per-user recency index.
func (r *GenerationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("user_recent"),
	})
	if err != nil {
		return unavailable("create generation indexes", err)
	}
	return nil
}
