package log

// Common field names for structured logging.
const (
	FieldComponent = "component"
	FieldUserID    = "user_id"
	FieldUsername  = "username"
	FieldScope     = "scope"
	FieldOwner     = "owner"
	FieldTxID      = "tx_id"
	FieldKind      = "kind"
	FieldCategory  = "category"
	FieldAmount    = "amount"
	FieldDate      = "date"
	FieldState     = "state"
	FieldError     = "error"
)

// Standard component names.
const (
	ComponentApp     = "app"
	ComponentBot     = "bot"
	ComponentStorage = "storage"
	ComponentLedger  = "ledger"
	ComponentSession = "session"
	ComponentReport  = "report"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentExport  = "export"
)
