package logger

// NopLogger discards everything. Used by tests and the CLI quiet mode.
type NopLogger struct{}

func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (NopLogger) Debug(module, message string, details map[string]interface{}) {}
func (NopLogger) Info(module, message string, details map[string]interface{})  {}
func (NopLogger) Warn(module, message string, details map[string]interface{})  {}
func (NopLogger) Error(module, message string, details map[string]interface{}) {}
func (NopLogger) Sync() error                                                  { return nil }

func (NopLogger) GetLogs(level string, limit, offset int) ([]LogEntry, error) {
	return []LogEntry{}, nil
}

func (NopLogger) GetLogById(id string) (*LogEntry, error) {
	return nil, ErrLogNotFound
}
