package util

import (
	"fmt"
	"io"

	"github.com/op/go-logging"
)

// util/InfoStream.java

/*
Debugging API for the writer family (IndexWriter, DocumentsWriter,
merge policies and schedulers, the file deleter).

Components are short tags such as "IW", "DW", "DWPT", "BD" or "TMP".
Callers check IsEnabled before formatting a message.

NOTE: Enabling infostreams may cause performance degradation in some
components.
*/
type InfoStream interface {
	io.Closer
	Clone() InfoStream
	Message(component, message string, args ...interface{})
	IsEnabled(component string) bool
}

type noOutput bool

func (is noOutput) Message(component, message string, args ...interface{}) {
	panic("message() should not be called when isEnabled returns false")
}

func (is noOutput) IsEnabled(component string) bool { return false }
func (is noOutput) Close() error                    { return nil }
func (is noOutput) Clone() InfoStream               { return is }

// Instance of InfoStream that does no logging at all.
const NO_OUTPUT = noOutput(true)

var DefaultInfoStream = func() InfoStream {
	return NO_OUTPUT
}

/*
InfoStream implementation over a go-logging logger. Messages are
emitted at DEBUG level, so enabling is controlled the usual way with
logging.SetLevel on the module. When components are given, only those
tags are enabled.
*/
type LoggingInfoStream struct {
	module     string
	logger     *logging.Logger
	components map[string]bool
}

func NewLoggingInfoStream(module string, components ...string) *LoggingInfoStream {
	var enabled map[string]bool
	if len(components) > 0 {
		enabled = make(map[string]bool)
		for _, c := range components {
			enabled[c] = true
		}
	}
	return &LoggingInfoStream{
		module:     module,
		logger:     logging.MustGetLogger(module),
		components: enabled,
	}
}

func (is *LoggingInfoStream) Message(component, message string, args ...interface{}) {
	is.logger.Debugf("%v: %v", component, fmt.Sprintf(message, args...))
}

func (is *LoggingInfoStream) IsEnabled(component string) bool {
	if !is.logger.IsEnabledFor(logging.DEBUG) {
		return false
	}
	return is.components == nil || is.components[component]
}

func (is *LoggingInfoStream) Close() error { return nil }

func (is *LoggingInfoStream) Clone() InfoStream {
	return &LoggingInfoStream{is.module, is.logger, is.components}
}

func (is *LoggingInfoStream) String() string {
	return fmt.Sprintf("LoggingInfoStream(%v)", is.module)
}
