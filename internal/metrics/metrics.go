package metrics

// Recorder receives the service's business counters.
type Recorder interface {
	// RecordAssignment counts one committed or rejected assignment.
	// path is "assign", "reassign" or "bulk_assign"; outcome is "success" or
	// an error code such as "capacity_exceeded".
	RecordAssignment(path, outcome string)
	// RecordCapacityFailOpen counts a capacity read that failed and was
	// answered with the default snapshot.
	RecordCapacityFailOpen()
	// RecordBulkItem counts one bulk item by operation and result status.
	RecordBulkItem(operation, status string)
}
