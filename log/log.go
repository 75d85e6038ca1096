package log

import (
	"io"
	"log"
	"os"
)

var (
	Trace   *log.Logger
	Info    *log.Logger
	Warning *log.Logger
	Error   *log.Logger
)

func init() {
	Init()
}

// Init (re)creates the loggers. Trace output is enabled with DIGITPAD_TRACE=1.
func Init() {
	var traceHandle io.Writer = io.Discard
	if os.Getenv("DIGITPAD_TRACE") == "1" {
		traceHandle = os.Stdout
	}

	Trace = log.New(traceHandle, "TRACE: ", log.Ldate|log.Ltime|log.Lshortfile)
	Info = log.New(os.Stdout, "", 0)
	Warning = log.New(os.Stderr, "WARNING: ", log.Ldate|log.Ltime)
	Error = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
}
