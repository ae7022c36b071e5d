package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/registry"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// VectorIndex upserts embedded chunks into Qdrant as an optional
// post-processor, generalizing the teacher's QdrantClient from a
// single fixed 1024-dim VoyageAI collection into one sized to whatever
// the configured embedding backend actually produces.
type VectorIndex struct {
	client         qdrant.PointsClient
	collectionCli  qdrant.CollectionsClient
	conn           *grpc.ClientConn
	collectionName string
	dims           uint64
}

// NewVectorIndex dials address and ensures collectionName exists sized
// for dims-dimensional vectors under cosine distance.
func NewVectorIndex(ctx context.Context, address, collectionName string, dims int) (*VectorIndex, error) {
	if address == "" || collectionName == "" {
		return nil, kerrors.Validation("vector index requires both an address and a collection name", nil)
	}
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, kerrors.Other("failed to connect to vector index: " + err.Error())
	}

	vi := &VectorIndex{
		client:         qdrant.NewPointsClient(conn),
		collectionCli:  qdrant.NewCollectionsClient(conn),
		conn:           conn,
		collectionName: collectionName,
		dims:           uint64(dims),
	}
	if err := vi.ensureCollection(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return vi, nil
}

func (vi *VectorIndex) ensureCollection(ctx context.Context) error {
	listResp, err := vi.collectionCli.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return kerrors.Other("failed to list vector index collections: " + err.Error())
	}
	for _, col := range listResp.Collections {
		if col.Name == vi.collectionName {
			return nil
		}
	}
	_, err = vi.collectionCli.Create(ctx, &qdrant.CreateCollection{
		CollectionName: vi.collectionName,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     vi.dims,
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return kerrors.Other("failed to create vector index collection: " + err.Error())
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (vi *VectorIndex) Close() error { return vi.conn.Close() }

// PostProcessor adapts upsertChunks to registry.PostProcessorFunc so it
// can be registered under a caller-chosen name and priority. A
// zero-embedding chunk (backend disabled or failed) is skipped rather
// than upserted, since Qdrant rejects vectors of the wrong length.
func (vi *VectorIndex) PostProcessor(ctx context.Context, sourcePath string) registry.PostProcessorFunc {
	return func(res interface{}) error {
		er, ok := res.(*result.ExtractionResult)
		if !ok {
			return kerrors.Other("vector index post-processor received an unexpected result type")
		}
		return vi.upsertChunks(ctx, sourcePath, er)
	}
}

func (vi *VectorIndex) upsertChunks(ctx context.Context, sourcePath string, res *result.ExtractionResult) error {
	points := make([]*qdrant.PointStruct, 0, len(res.Chunks))
	for i, c := range res.Chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		payload := map[string]*qdrant.Value{
			"source_path": {Kind: &qdrant.Value_StringValue{StringValue: sourcePath}},
			"chunk_index": {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(i)}},
			"mime_type":   {Kind: &qdrant.Value_StringValue{StringValue: res.MimeType}},
		}
		points = append(points, &qdrant.PointStruct{
			Id: &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: uuid.New().String()}},
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: c.Embedding}},
			},
			Payload: payload,
		})
	}
	if len(points) == 0 {
		return nil
	}

	_, err := vi.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: vi.collectionName,
		Points:         points,
	})
	if err != nil {
		return kerrors.Other(fmt.Sprintf("failed to upsert %d chunk vectors: %s", len(points), err.Error()))
	}
	return nil
}
