package logging

// NoopLogger discards all log output. Used in tests.
type NoopLogger struct{}

// NewNoop returns a logger that drops everything.
func NewNoop() Logger {
	return &NoopLogger{}
}

func (n *NoopLogger) Debug(string, ...interface{}) {}
func (n *NoopLogger) Info(string, ...interface{})  {}
func (n *NoopLogger) Warn(string, ...interface{})  {}
func (n *NoopLogger) Error(string, ...interface{}) {}
func (n *NoopLogger) Fatal(string, ...interface{}) {}

func (n *NoopLogger) WithComponent(string) Logger { return n }
func (n *NoopLogger) WithTraceID(string) Logger   { return n }
