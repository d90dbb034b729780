// Package levels defines the severity tags that prefix every log record.
// It is a peripheral, external-to-the-core contract per the engine's design:
// the core only needs the tag's textual form, not its comparison semantics.
package levels

// Level identifies a log record's severity.
type Level int

const (
	Info Level = iota
	Debug
	Warning
	Error
	Fatal
)

// tag is the exact on-disk textual form, including the trailing space the
// record format requires between the tag and the timestamp.
var tag = [...]string{
	Info:    "INFO ",
	Debug:   "DEBUG ",
	Warning: "WARNING ",
	Error:   "ERROR ",
	Fatal:   "FATAL ",
}

// Tag returns the level's on-disk representation, e.g. "INFO ".
func (l Level) Tag() string {
	if l < Info || l > Fatal {
		return "UNKNOWN "
	}
	return tag[l]
}

func (l Level) String() string {
	s := l.Tag()
	return s[:len(s)-1]
}
