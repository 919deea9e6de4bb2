package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldOperation = "operation"

	FieldTxID        = "tx_id"
	FieldTxType      = "tx_type"
	FieldAmount      = "amount"
	FieldFund        = "fund"
	FieldMonth       = "month"
	FieldRow         = "row"
	FieldSpreadsheet = "spreadsheet_id"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentSession = "session"
	ComponentSheets  = "sheets"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentAdvisor = "advisor"
	ComponentCLI     = "cli"
)
