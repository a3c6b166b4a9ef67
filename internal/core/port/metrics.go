package port

// OperationMetrics records the outcome of auth operations.
type OperationMetrics interface {
	RecordAuthOperation(operation, result string)
}
