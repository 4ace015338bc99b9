// Package qdrant implements VectorStore backed by a Qdrant collection.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/donbr/graphiti-qdrant/pkg/provider"
	"github.com/donbr/graphiti-qdrant/pkg/types"
)

// Default collection parameters.
const (
	DefaultDimensions        = 1536
	DefaultIndexingThreshold = 10000
	sourceField              = "source_name"
)

// Config contains Qdrant connection and collection configuration.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimensions int // Set to 0 to use DefaultDimensions
}

// Store implements the VectorStore interface for Qdrant.
type Store struct {
	config Config
	client *qdrant.Client
}

// New connects to Qdrant over gRPC.
func New(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant collection name is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &Store{
		config: cfg,
		client: client,
	}, nil
}

// EnsureCollection creates the collection if it does not exist. Vectors and
// payload live on disk; indexing kicks in once the threshold is crossed.
func (s *Store) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		slog.Debug("Collection already exists", "collection", s.config.Collection)
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.config.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.config.Dimensions),
			Distance: qdrant.Distance_Cosine,
			OnDisk:   qdrant.PtrOf(true),
		}),
		OnDiskPayload: qdrant.PtrOf(true),
		OptimizersConfig: &qdrant.OptimizersConfigDiff{
			IndexingThreshold: qdrant.PtrOf(uint64(DefaultIndexingThreshold)),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.config.Collection, err)
	}

	slog.Info("Created collection",
		"collection", s.config.Collection,
		"dimensions", s.config.Dimensions,
		"distance", "cosine")
	return nil
}

// EnsureSourceIndex creates a keyword payload index on the source field so
// filtered queries stay fast. Qdrant treats repeated creation as a no-op.
func (s *Store) EnsureSourceIndex(ctx context.Context) error {
	_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.config.Collection,
		FieldName:      sourceField,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create payload index on %s: %w", sourceField, err)
	}
	return nil
}

// PointID derives a deterministic UUID from a document ID, so re-uploading
// the same document overwrites its previous point instead of duplicating it.
func PointID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(docID)).String()
}

// Upsert writes documents with their embeddings.
func (s *Store) Upsert(ctx context.Context, docs []*types.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("document/vector count mismatch: %d vs %d", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(doc.DocID)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"doc_id":             doc.DocID,
				"page_number":        int64(doc.PageNumber),
				"source_name":        doc.SourceName,
				"title":              doc.Title,
				"source_url":         doc.SourceURL,
				"content":            doc.Content,
				"content_length":     int64(doc.ContentLength),
				"total_pages":        int64(doc.TotalPages),
				"avg_content_length": doc.AvgContentLength,
			}),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.config.Collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

// fallbackFactor widens the unfiltered query when a filtered one cannot be
// served, so client-side filtering still has enough candidates.
const fallbackFactor = 3

// Query returns the documents closest to the query vector. When source is
// non-empty the results are restricted to that source via a payload filter.
// If Qdrant rejects the filtered query because the payload index is missing,
// a wider unfiltered query is run and filtered client-side instead.
func (s *Store) Query(ctx context.Context, vector []float32, limit int, source string) ([]*types.SearchResult, error) {
	points, err := s.query(ctx, vector, limit, source)
	if err != nil {
		if source == "" || !isIndexRequired(err) {
			return nil, fmt.Errorf("qdrant query failed: %w", err)
		}
		slog.Warn("payload index missing, filtering client-side",
			"field", sourceField, "source", source)
		points, err = s.query(ctx, vector, limit*fallbackFactor, "")
		if err != nil {
			return nil, fmt.Errorf("qdrant query failed: %w", err)
		}
		return filterBySource(resultsFromPoints(points), source, limit), nil
	}
	return resultsFromPoints(points), nil
}

func (s *Store) query(ctx context.Context, vector []float32, limit int, source string) ([]*qdrant.ScoredPoint, error) {
	req := &qdrant.QueryPoints{
		CollectionName: s.config.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if source != "" {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(sourceField, source),
			},
		}
	}
	return s.client.Query(ctx, req)
}

// isIndexRequired reports whether err is Qdrant rejecting a filtered query
// for lack of a payload index on the filtered field.
func isIndexRequired(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Index required")
}

// filterBySource keeps results matching source, in order, up to limit.
func filterBySource(results []*types.SearchResult, source string, limit int) []*types.SearchResult {
	out := make([]*types.SearchResult, 0, limit)
	for _, r := range results {
		if r.Document.SourceName != source {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}

func resultsFromPoints(points []*qdrant.ScoredPoint) []*types.SearchResult {
	results := make([]*types.SearchResult, 0, len(points))
	for _, p := range points {
		results = append(results, &types.SearchResult{
			Score:    p.GetScore(),
			Document: *documentFromPayload(p.GetPayload()),
		})
	}
	return results
}

// Count returns the number of stored points, optionally per source.
func (s *Store) Count(ctx context.Context, source string) (uint64, error) {
	req := &qdrant.CountPoints{
		CollectionName: s.config.Collection,
		Exact:          qdrant.PtrOf(true),
	}
	if source != "" {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(sourceField, source),
			},
		}
	}

	count, err := s.client.Count(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("qdrant count failed: %w", err)
	}
	return count, nil
}

// SourceCounts returns the number of stored points per source name.
// Sources with zero points are omitted.
func (s *Store) SourceCounts(ctx context.Context, sources []string) (map[string]uint64, error) {
	counts := make(map[string]uint64, len(sources))
	for _, src := range sources {
		n, err := s.Count(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("failed to count source %s: %w", src, err)
		}
		if n > 0 {
			counts[src] = n
		}
	}
	return counts, nil
}

// Info returns collection status for validation and reporting.
func (s *Store) Info(ctx context.Context) (*types.CollectionStatus, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.config.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}

	status := &types.CollectionStatus{
		Collection:  s.config.Collection,
		Status:      info.GetStatus().String(),
		PointsCount: info.GetPointsCount(),
	}

	// Dig out the single-vector params; named-vector collections are not
	// used here.
	if params := info.GetConfig().GetParams().GetVectorsConfig().GetParams(); params != nil {
		status.Dimensions = params.GetSize()
		status.Distance = params.GetDistance().String()
	}

	return status, nil
}

// Close releases the gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// documentFromPayload reconstructs a Document from a stored payload.
func documentFromPayload(payload map[string]*qdrant.Value) *types.Document {
	doc := &types.Document{
		DocID:            payload["doc_id"].GetStringValue(),
		PageNumber:       int(payload["page_number"].GetIntegerValue()),
		SourceName:       payload["source_name"].GetStringValue(),
		Title:            payload["title"].GetStringValue(),
		SourceURL:        payload["source_url"].GetStringValue(),
		Content:          payload["content"].GetStringValue(),
		ContentLength:    int(payload["content_length"].GetIntegerValue()),
		TotalPages:       int(payload["total_pages"].GetIntegerValue()),
		AvgContentLength: payload["avg_content_length"].GetDoubleValue(),
	}
	return doc
}

// Ensure Store implements VectorStore interface
var _ provider.VectorStore = (*Store)(nil)
