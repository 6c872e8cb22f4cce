// Package grpc provides gRPC API handlers for the Tessera system.
package grpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/tesseradb/tessera/api/proto"
	"github.com/tesseradb/tessera/internal/cache"
	"github.com/tesseradb/tessera/internal/catalog"
	"github.com/tesseradb/tessera/internal/dispatch"
	"github.com/tesseradb/tessera/internal/errors"
	"github.com/tesseradb/tessera/internal/notify"
	"github.com/tesseradb/tessera/internal/observability"
	"github.com/tesseradb/tessera/internal/partition"
	"github.com/tesseradb/tessera/pkg/types"
)

// RouteServer implements the RouteService gRPC server.
type RouteServer struct {
	proto.UnimplementedRouteServiceServer
	catalog  *catalog.Catalog
	cache    *cache.BoundTableCache
	notifier *notify.Notifier
	stats    *observability.RouteStats
	eval     dispatch.ExprEvaluator
	log      zerolog.Logger
}

// NewRouteServer creates a new gRPC route server. eval may be nil when
// no table uses expression key columns.
func NewRouteServer(
	cat *catalog.Catalog,
	c *cache.BoundTableCache,
	notifier *notify.Notifier,
	stats *observability.RouteStats,
	eval dispatch.ExprEvaluator,
	log zerolog.Logger,
) *RouteServer {
	return &RouteServer{
		catalog:  cat,
		cache:    c,
		notifier: notifier,
		stats:    stats,
		eval:     eval,
		log:      log,
	}
}

// RouteRow routes one row through a partitioned table and returns the
// leaf partition it belongs to.
func (s *RouteServer) RouteRow(ctx context.Context, req *proto.RouteRowRequest) (*proto.RouteRowResponse, error) {
	requestID := extractRequestID(ctx)
	start := time.Now()

	if req.TableId == "" {
		return nil, status.Error(codes.InvalidArgument, "table_id is required")
	}
	if req.Row == nil {
		return nil, status.Error(codes.InvalidArgument, "row is required")
	}
	rootID := types.TableID(req.TableId)

	row, err := decodeProtoRow(req.Row)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid row data: %v", err)
	}

	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, statusFromError(err)
	}
	tree, err := dispatch.BuildTree(snap, rootID, s.eval)
	if err != nil {
		return nil, statusFromError(err)
	}

	slot, err := tree.Route(row)
	if err != nil {
		s.stats.RecordFailure(rootID)
		s.log.Debug().Str("table", string(rootID)).Str("request_id", requestID).
			Err(err).Msg("row routing failed")
		return nil, statusFromError(err)
	}
	leaf, err := tree.LeafTable(slot)
	if err != nil {
		return nil, statusFromError(err)
	}

	s.stats.RecordRoute(rootID, leaf, time.Since(start))

	return &proto.RouteRowResponse{
		LeafTableId: string(leaf),
		LeafSlot:    int32(slot),
		RequestId:   requestID,
	}, nil
}

// CheckBound validates a candidate bound declaration against a table's
// existing partitions. A conflict is reported in the response, not as
// an RPC error; only malformed requests fail the call.
func (s *RouteServer) CheckBound(ctx context.Context, req *proto.CheckBoundRequest) (*proto.CheckBoundResponse, error) {
	requestID := extractRequestID(ctx)

	if req.ParentId == "" {
		return nil, status.Error(codes.InvalidArgument, "parent_id is required")
	}
	if len(req.Declaration) == 0 {
		return nil, status.Error(codes.InvalidArgument, "declaration is required")
	}
	parentID := types.TableID(req.ParentId)

	decl, err := catalog.DecodeDeclaration(req.Declaration)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid declaration: %v", err)
	}

	meta, err := s.catalog.GetTable(ctx, parentID)
	if err != nil {
		return nil, statusFromError(err)
	}
	if !meta.Partitioned {
		return nil, status.Errorf(codes.FailedPrecondition, "table %s is not partitioned", parentID)
	}
	key, err := meta.BuildKey()
	if err != nil {
		return nil, statusFromError(err)
	}

	desc, err := s.descriptorFor(ctx, meta, key)
	if err != nil {
		return nil, statusFromError(err)
	}

	if err := partition.CheckOverlap(key, desc, *decl); err != nil {
		if conflict, ok := partition.ConflictingPartition(err); ok {
			return &proto.CheckBoundResponse{
				Ok:            false,
				ConflictsWith: string(conflict),
				RequestId:     requestID,
			}, nil
		}
		return nil, statusFromError(err)
	}

	return &proto.CheckBoundResponse{Ok: true, RequestId: requestID}, nil
}

// Invalidate drops a table's cached bound table and broadcasts the
// change so other caches follow.
func (s *RouteServer) Invalidate(ctx context.Context, req *proto.InvalidateRequest) (*proto.InvalidateResponse, error) {
	requestID := extractRequestID(ctx)

	if req.TableId == "" {
		return nil, status.Error(codes.InvalidArgument, "table_id is required")
	}
	id := types.TableID(req.TableId)

	_, _, cached := s.cache.Get(id)
	s.cache.Invalidate(id)
	s.notifier.Publish(notify.Event{Type: notify.BoundChanged, Table: id})

	return &proto.InvalidateResponse{Dropped: cached, RequestId: requestID}, nil
}

// descriptorFor returns the table's bound table descriptor, building it
// from the catalog on a cache miss.
func (s *RouteServer) descriptorFor(ctx context.Context, meta *catalog.TableMeta, key *partition.Key) (*partition.Descriptor, error) {
	if desc, _, ok := s.cache.Get(meta.ID); ok {
		return desc, nil
	}

	children, err := s.catalog.ListChildren(ctx, meta.ID)
	if err != nil {
		return nil, err
	}
	decls := make([]partition.PartitionDecl, 0, len(children))
	for _, child := range children {
		if child.Bound == nil {
			return nil, errors.NewInternalError("partition %s of %s has no bound", child.ID, meta.ID)
		}
		decls = append(decls, partition.PartitionDecl{ID: child.ID, Bound: *child.Bound})
	}
	desc, err := partition.BuildBoundTable(key, decls)
	if err != nil {
		return nil, err
	}
	desc, _ = s.cache.Store(meta.ID, desc)
	return desc, nil
}

// decodeProtoRow converts a proto Row to a typed row. An empty datum
// element is NULL.
func decodeProtoRow(pr *proto.Row) (types.Row, error) {
	row := make(types.Row, len(pr.Datums))
	for i, raw := range pr.Datums {
		if len(raw) == 0 {
			continue
		}
		d, err := types.DecodeDatum(raw)
		if err != nil {
			return nil, err
		}
		row[i] = d
	}
	return row, nil
}

// statusFromError maps structured errors to gRPC status codes.
func statusFromError(err error) error {
	switch errors.GetCategory(err) {
	case errors.ErrCategoryDefinition:
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.ErrCategoryOverlap:
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.ErrCategoryRouting:
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.ErrCategoryCatalog:
		if errors.GetCode(err) == errors.CodeTableNotFound {
			return status.Error(codes.NotFound, err.Error())
		}
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// extractRequestID extracts or generates a request ID from the gRPC
// context.
func extractRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get("x-request-id"); len(ids) > 0 {
			return ids[0]
		}
	}
	return uuid.New().String()
}
