package core

// Logger is implemented by the app loggers.
// expected args fmt: error | map[string]interface{} | Person
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the authenticated caller a log entry relates to.
type Person struct {
	ID       string
	Username string
	Email    string
}
