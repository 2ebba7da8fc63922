// Package kb searches the product knowledge base. Articles live in a mongo
// collection with a text index over title and body.
package kb

import (
	"context"
	"fmt"
	"time"

	"github.com/cxlinux-ai/supportbot/internal/search"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 3 * time.Second

// Article is one knowledge-base document
type Article struct {
	Title string  `bson:"title"`
	Body  string  `bson:"body"`
	Score float64 `bson:"score,omitempty"`
}

// Provider implements search.Provider over the knowledge base
type Provider struct {
	collection *mongo.Collection
	timeout    time.Duration
}

// NewProvider creates a knowledge-base provider over the given collection
func NewProvider(collection *mongo.Collection, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{collection: collection, timeout: timeout}
}

func (p *Provider) Name() string {
	return "knowledge_base"
}

// Relevant always returns true; the knowledge base runs for every question.
func (p *Provider) Relevant(question string) bool {
	return true
}

func (p *Provider) Timeout() time.Duration {
	return p.timeout
}

// Search runs a text-index query ranked by text score
func (p *Provider) Search(ctx context.Context, query string, maxResults int) ([]search.Snippet, error) {
	filter := bson.M{"$text": bson.M{"$search": query}}
	opts := options.Find().
		SetProjection(bson.M{"title": 1, "body": 1, "score": bson.M{"$meta": "textScore"}}).
		SetSort(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetLimit(int64(maxResults))

	cursor, err := p.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge base: %w", err)
	}
	defer cursor.Close(ctx)

	var snippets []search.Snippet
	for cursor.Next(ctx) {
		var article Article
		if err := cursor.Decode(&article); err != nil {
			return nil, fmt.Errorf("failed to decode article: %w", err)
		}
		snippets = append(snippets, search.Snippet{
			Source:  article.Title,
			Content: fmt.Sprintf("%s: %s", article.Title, article.Body),
			Score:   article.Score,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return snippets, nil
}
