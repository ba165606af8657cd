package metrics

// NopRecorder discards everything. Used in tests and when /metrics is off.
type NopRecorder struct{}

var _ Recorder = (*NopRecorder)(nil)

func NewNop() *NopRecorder { return &NopRecorder{} }

func (*NopRecorder) RecordAssignment(_, _ string) {}

func (*NopRecorder) RecordCapacityFailOpen() {}

func (*NopRecorder) RecordBulkItem(_, _ string) {}
