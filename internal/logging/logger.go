// Package logging is the structured logger handed to every tally component.
// Code logs through Logger; only the CLI decides where entries go.
package logging

// Logger writes leveled entries with key/value fields. The With methods
// return a derived logger and leave the receiver untouched.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	WithError(err error) Logger
	WithField(key string, value any) Logger
	WithFields(fields ...Field) Logger
}

// Field is one key/value pair on an entry.
type Field struct {
	Value any
	Key   string
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}
