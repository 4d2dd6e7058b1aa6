package logging

// Standardized field names for structured logging.
const (
	FieldUser        = "user_id"
	FieldTerm        = "term"
	FieldCity        = "city"
	FieldCategoryID  = "category_id"
	FieldKeyword     = "keyword"
	FieldExpenseID   = "expense_id"
	FieldStatus      = "status"
	FieldPattern     = "pattern_id"
	FieldConfidence  = "confidence"
	FieldStage       = "stage"
	FieldCount       = "count"
	FieldFile        = "file_path"
	FieldVersion     = "version"
	FieldAttempt     = "attempt"
	FieldMaxAttempts = "max_attempts"
)
