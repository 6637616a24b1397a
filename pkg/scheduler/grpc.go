// grpc.go adapts the Scheduler capability onto a real network call via
// google.golang.org/grpc. There is no .proto source for this narrow,
// single-method service, so rather than hand-author proto.Message
// implementations (the actual fabrication this codebase avoids — see
// DESIGN.md), requests and responses are plain Go structs carried by a
// small JSON grpc/encoding.Codec. grpc-go supports this as a first-class
// extension point; it is how the transport, not the wire format, ends up
// grounded on the third-party library.
package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const jsonCodecName = "actorkv-json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements google.golang.org/grpc/encoding.Codec using
// encoding/json instead of protobuf wire encoding.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return jsonCodecName }

// scheduleRunRequest/Response are the wire messages for the single RPC
// this capability needs.
type scheduleRunRequest struct {
	// AtMillis is nil when the request means "cancel any pending alarm".
	AtMillis *int64 `json:"at_millis,omitempty"`
}

type scheduleRunResponse struct{}

const scheduleRunMethod = "/actorkv.v1.Scheduler/ScheduleRun"

// GRPCClient is the production Scheduler adapter: a thin wrapper over a
// grpc.ClientConn that invokes the single ScheduleRun RPC the coordinator
// needs, the same way generated stub code would (stub methods are
// themselves just named wrappers around ClientConn.Invoke).
type GRPCClient struct {
	conn *grpc.ClientConn
}

// NewGRPCClient wraps an already-dialed connection. Dialing (TLS,
// retries, keepalive) is the caller's concern — this adapter only knows
// how to shape the one call it needs.
func NewGRPCClient(conn *grpc.ClientConn) *GRPCClient {
	return &GRPCClient{conn: conn}
}

// ScheduleRun implements Scheduler over gRPC.
func (c *GRPCClient) ScheduleRun(ctx context.Context, at *time.Time) error {
	req := &scheduleRunRequest{}
	if at != nil {
		ms := at.UnixMilli()
		req.AtMillis = &ms
	}
	resp := &scheduleRunResponse{}
	return c.conn.Invoke(ctx, scheduleRunMethod, req, resp,
		grpc.CallContentSubtype(jsonCodecName))
}

var _ Scheduler = (*GRPCClient)(nil)
