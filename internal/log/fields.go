package log

import "sort"

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldEntity     = "entity"
	FieldRecordID   = "record_id"
	FieldPropertyID = "property_id"
	FieldAmount     = "amount"
	FieldCategory   = "category"
	FieldPeriod     = "period"
	FieldYear       = "year"
	FieldCurrency   = "currency"
	FieldNetWorth   = "net_worth"
	FieldRows       = "rows"
)

// Components
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentReport    = "report"
	ComponentSnapshot  = "snapshot"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentExport    = "export"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operations
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpSnapshot = "snapshot"
	OpExport   = "export"
	OpValidate = "validate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// Error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields collects structured log fields.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error text; a nil error adds nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(kind string) LogFields {
	f[FieldErrorType] = kind
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRecord identifies a ledger record.
func (f LogFields) WithRecord(entity, id string) LogFields {
	f[FieldEntity] = entity
	if id != "" {
		f[FieldRecordID] = id
	}
	return f
}

// WithAmount adds an amount and, when set, its category.
func (f LogFields) WithAmount(amount float64, category string) LogFields {
	f[FieldAmount] = amount
	if category != "" {
		f[FieldCategory] = category
	}
	return f
}

// WithReport adds the report parameters.
func (f LogFields) WithReport(period string, year int, currency string) LogFields {
	if period != "" {
		f[FieldPeriod] = period
	}
	if year != 0 {
		f[FieldYear] = year
	}
	if currency != "" {
		f[FieldCurrency] = currency
	}
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts the fields to slog key/value pairs, ordered by key so
// output is stable.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
