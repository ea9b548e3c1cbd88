package cmd

import (
	"fmt"
	"log"
	"os"
)

var (
	// used to patch over calls to os.Exit() during test
	osExit = os.Exit

	// infoLogger wraps informative messages to os.Stderr without cluttering the output of commands.
	infoLogger = log.New(os.Stderr, "", 0)
)

func logStdErr(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(os.Stderr, format, args...)
}

func wrapFatalWithCodef(code int, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	osExit(code)
}
