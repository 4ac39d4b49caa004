package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Viewer connection
	FieldClientID = "client_id"
	FieldViewerID = "viewer_id"

	// Commentary session
	FieldSessionID = "session_id"
	FieldEventID   = "event_id"
	FieldHandle    = "handle"

	// Service
	FieldService = "service"

	// gRPC
	FieldGRPCMethod = "grpc_method"
	FieldGRPCCode   = "grpc_code"
)
