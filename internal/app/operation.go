package app

// ImportOperation tracks a CLI invocation that may mutate the catalog.
// Operations are created in memory with ID=0. Only catalog-mutating
// commands persist them (giving them an auto-increment ID).
type ImportOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "success" or "error"
}

// NewImportOperation creates a new in-memory import operation.
func NewImportOperation(operation, parameters string) *ImportOperation {
	return &ImportOperation{
		Operation:  operation,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if this operation has been saved to the catalog.
func (op *ImportOperation) Persisted() bool {
	return op.ID != 0
}
