package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldScope      = "scope"
	FieldResource   = "resource"
	FieldEntityID   = "entity_id"
	FieldOutcome    = "outcome"
	FieldCount      = "count"
	FieldKey        = "key"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentRemote   = "remote"
	ComponentSync     = "sync"
	ComponentMutation = "mutation"
	ComponentOverride = "override"
	ComponentKVStore  = "kvstore"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentBackend  = "backend"
	ComponentMetrics  = "metrics"
)

// Operations defines standard operation names
const (
	OpList     = "list"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpUpload   = "upload"
	OpRefetch  = "refetch"
	OpRollback = "rollback"
	OpMerge    = "merge"
	OpExport   = "export"
	OpPublish  = "publish"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeDecode        = "decode_error"
	ErrorTypeStatus        = "status_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithEntity adds scope and entity identifier fields
func (f LogFields) WithEntity(scope, id string) LogFields {
	f[FieldScope] = scope
	f[FieldEntityID] = id
	return f
}

// WithOutcome adds the mutation outcome
func (f LogFields) WithOutcome(outcome string) LogFields {
	f[FieldOutcome] = outcome
	return f
}

// WithHTTPRequest adds outbound request fields
func (f LogFields) WithHTTPRequest(method, path string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	return f
}

// WithHTTPResponse adds outbound response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		if k == FieldComponent {
			continue
		}
		slice = append(slice, k, v)
	}
	return slice
}
