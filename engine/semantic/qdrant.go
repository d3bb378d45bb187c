package semantic

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
)

// pointsAPI is the slice of pb.PointsClient this package calls.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
	Scroll(ctx context.Context, in *pb.ScrollPoints, opts ...grpc.CallOption) (*pb.ScrollResponse, error)
}

// collectionsAPI is the slice of pb.CollectionsClient this package calls.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Qdrant is the external vector-index backend, addressed over gRPC.
type Qdrant struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
	dim         int
}

// NewQdrant connects to Qdrant at the given gRPC address.
func NewQdrant(addr, collection string, dim int) (*Qdrant, error) {
	if dim <= 0 {
		dim = domain.DefaultDimension
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &Qdrant{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dim:         dim,
	}, nil
}

// NewQdrantWithClients builds a Qdrant index over pre-built clients. Tests
// use it to substitute mocks for the gRPC stubs.
func NewQdrantWithClients(points pointsAPI, collections collectionsAPI, collection string, dim int) *Qdrant {
	if dim <= 0 {
		dim = domain.DefaultDimension
	}
	return &Qdrant{
		points:      points,
		collections: collections,
		collection:  collection,
		dim:         dim,
	}
}

var _ Index = (*Qdrant)(nil)

// Close closes the underlying gRPC connection, if one was dialed.
func (q *Qdrant) Close() error {
	if q.conn == nil {
		return nil
	}
	return q.conn.Close()
}

// EnsureCollection creates a cosine-distance collection if it doesn't exist.
func (q *Qdrant) EnsureCollection(ctx context.Context) error {
	list, err := q.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return storeErr("list collections", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == q.collection {
			return nil
		}
	}

	_, err = q.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(q.dim),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return storeErr(fmt.Sprintf("create collection %s", q.collection), err)
	}
	return nil
}

// pointID derives a deterministic Qdrant UUID from a lab id, so repeated
// upserts of the same record address the same point.
func pointID(labID string) *pb.PointId {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("lab:"+labID)).String()
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}
}

// Upsert inserts or fully replaces the point for rec.ID.
func (q *Qdrant) Upsert(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return domain.NewValidationError("id", rec.ID, domain.ErrInvalidRecord)
	}
	if err := rec.Payload.Validate(); err != nil {
		return err
	}
	if len(rec.Vector) != q.dim {
		return fmt.Errorf("%w: vector has %d dimensions, index wants %d",
			domain.ErrInvalidRecord, len(rec.Vector), q.dim)
	}

	wait := true
	_, err := q.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id: pointID(rec.ID),
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: rec.Vector}},
			},
			Payload: encodePayload(rec.ID, rec.Payload),
		}},
	})
	if err != nil {
		return storeErr(fmt.Sprintf("upsert %s", rec.ID), err)
	}
	return nil
}

// Query performs filtered k-NN search, ordered by descending similarity.
func (q *Qdrant) Query(ctx context.Context, vector []float32, k int, filter *Filter) ([]Hit, error) {
	if k <= 0 {
		return nil, domain.NewValidationError("k", fmt.Sprintf("%d", k), domain.ErrInvalidLimit)
	}

	req := &pb.SearchPoints{
		CollectionName: q.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if filter != nil && filter.Institution != "" {
		req.Filter = &pb.Filter{Must: []*pb.Condition{fieldMatch("institution", filter.Institution)}}
	}

	resp, err := q.points.Search(ctx, req)
	if err != nil {
		return nil, queryErr("search", err)
	}

	hits := make([]Hit, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		id, payload := decodePayload(r.GetPayload())
		if id == "" {
			continue
		}
		hits = append(hits, Hit{ID: id, Score: ClampScore(r.GetScore()), Payload: payload})
	}
	return hits, nil
}

// Delete removes the point for id; subsequent queries never return it.
func (q *Qdrant) Delete(ctx context.Context, id string) error {
	wait := true
	_, err := q.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: []*pb.PointId{pointID(id)}},
			},
		},
	})
	if err != nil {
		return storeErr(fmt.Sprintf("delete %s", id), err)
	}
	return nil
}

// Count returns the exact number of indexed points.
func (q *Qdrant) Count(ctx context.Context) (uint64, error) {
	exact := true
	resp, err := q.points.Count(ctx, &pb.CountPoints{
		CollectionName: q.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, queryErr("count", err)
	}
	return resp.GetResult().GetCount(), nil
}

// Institutions scrolls the collection payloads and returns the sorted
// distinct institution values.
func (q *Qdrant) Institutions(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var offset *pb.PointId
	limit := uint32(256)

	for {
		req := &pb.ScrollPoints{
			CollectionName: q.collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		}
		resp, err := q.points.Scroll(ctx, req)
		if err != nil {
			return nil, queryErr("scroll", err)
		}
		for _, p := range resp.GetResult() {
			if v, ok := p.GetPayload()["institution"]; ok {
				if inst := v.GetStringValue(); inst != "" {
					seen[inst] = struct{}{}
				}
			}
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}

	out := make([]string, 0, len(seen))
	for inst := range seen {
		out = append(out, inst)
	}
	sort.Strings(out)
	return out, nil
}

// --- payload codec ---

func encodePayload(id string, p Payload) map[string]*pb.Value {
	areas := make([]*pb.Value, len(p.ResearchAreas))
	for i, a := range p.ResearchAreas {
		areas[i] = strValue(a)
	}
	return map[string]*pb.Value{
		"id":          strValue(id),
		"name":        strValue(p.Name),
		"institution": strValue(p.Institution),
		"professor":   strValue(p.Professor),
		"description": strValue(p.Description),
		"research_areas": {Kind: &pb.Value_ListValue{
			ListValue: &pb.ListValue{Values: areas},
		}},
		"website":    strValue(p.Website),
		"email":      strValue(p.Email),
		"updated_at": strValue(p.UpdatedAt.UTC().Format(time.RFC3339)),
	}
}

func decodePayload(values map[string]*pb.Value) (string, Payload) {
	var p Payload
	id := values["id"].GetStringValue()
	p.Name = values["name"].GetStringValue()
	p.Institution = values["institution"].GetStringValue()
	p.Professor = values["professor"].GetStringValue()
	p.Description = values["description"].GetStringValue()
	p.Website = values["website"].GetStringValue()
	p.Email = values["email"].GetStringValue()
	for _, v := range values["research_areas"].GetListValue().GetValues() {
		if s := v.GetStringValue(); s != "" {
			p.ResearchAreas = append(p.ResearchAreas, s)
		}
	}
	if ts := values["updated_at"].GetStringValue(); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			p.UpdatedAt = parsed
		}
	}
	return id, p
}

func strValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

// --- error mapping ---

// storeErr maps mutation failures: an unreachable store is reported as
// ErrIndexUnavailable so ingestion can skip the record without aborting.
func storeErr(op string, err error) error {
	if classify(err) == domain.ErrIndexUnavailable {
		return fmt.Errorf("%w: semantic: %s: %v", domain.ErrIndexUnavailable, op, err)
	}
	return fmt.Errorf("semantic: %s: %w", op, err)
}

// queryErr maps read failures, which must surface loudly to the caller.
func queryErr(op string, err error) error {
	if classify(err) == domain.ErrIndexUnavailable {
		return fmt.Errorf("%w: semantic: %s: %v", domain.ErrIndexUnavailable, op, err)
	}
	return fmt.Errorf("%w: semantic: %s: %v", domain.ErrIndexQuery, op, err)
}

func classify(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return domain.ErrIndexUnavailable
	default:
		return domain.ErrIndexQuery
	}
}
