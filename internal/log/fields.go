package log

const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldBytes      = "bytes"
	FieldUserAgent  = "user_agent"
	FieldUserID     = "user_id"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldResource   = "resource"
	FieldAction     = "action"
	FieldCategoryID = "category_id"
	FieldExpenseID  = "expense_id"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentAuth      = "auth"
	ComponentUser      = "user"
	ComponentCategory  = "category"
	ComponentExpense   = "expense"
	ComponentStats     = "statistics"
	ComponentStorage   = "storage"
	ComponentAudit     = "audit"
	ComponentAMQP      = "amqp"
	ComponentEmail     = "email"
	ComponentScheduler = "scheduler"
)
