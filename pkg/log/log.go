package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Provides a simple way of logging with different levels for the tts
// server and CLI. Time/Date are not logged by default because systemd
// adds them for us when the server runs as a unit; SetLogDateTime turns
// them back on for a foreground/debug run.
//
// Uses these syslog priority prefixes: https://www.freedesktop.org/software/systemd/man/sd-daemon.html

var logDateTime bool

// Per-level output targets. SetLogLevel swaps these to io.Discard to
// silence a level; reassigning one directly (cmd/tts-server's log_path
// redirection does this) takes effect on the next call, since each print
// function reads the writer at call time rather than baking it into a
// long-lived *log.Logger.
var (
	DebugWriter io.Writer = os.Stderr
	NoteWriter  io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
	CritWriter  io.Writer = os.Stderr
)

var (
	DebugPrefix = "<7>[DEBUG]    "
	InfoPrefix  = "<6>[INFO]     "
	NotePrefix  = "<5>[NOTICE]   "
	WarnPrefix  = "<4>[WARNING]  "
	ErrPrefix   = "<3>[ERROR]    "
	CritPrefix  = "<2>[CRITICAL] "
)

// level bundles everything emit needs to print one line at one severity:
// where it goes, what it's tagged with, and how verbose its call-site
// info should be (longfile for error-and-above, matching the teacher).
type level struct {
	writer *io.Writer
	prefix string
	flags  int
}

var (
	debugLevel = level{&DebugWriter, DebugPrefix, log.Lshortfile}
	noteLevel  = level{&NoteWriter, NotePrefix, log.Lshortfile}
	infoLevel  = level{&InfoWriter, InfoPrefix, 0}
	warnLevel  = level{&WarnWriter, WarnPrefix, log.Lshortfile}
	errLevel   = level{&ErrWriter, ErrPrefix, log.Llongfile}
	critLevel  = level{&CritWriter, CritPrefix, log.Llongfile}
)

func (l level) emit(s string) {
	w := *l.writer
	if w == io.Discard {
		return
	}
	flags := l.flags
	if logDateTime {
		flags |= log.LstdFlags
	}
	log.New(w, l.prefix, flags).Output(3, s)
}

/* CONFIG */

// SetLogLevel silences every level below lvl by switching its writer to
// io.Discard; an unrecognized value falls back to "debug" (nothing
// silenced).
func SetLogLevel(lvl string) {
	switch lvl {
	case "crit":
		ErrWriter = io.Discard
		fallthrough
	case "err", "fatal":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "notice":
		NoteWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug":
		// Nothing to do.
	default:
		fmt.Printf("pkg/log: log_level %q is invalid, using \"debug\"\n", lvl)
		SetLogLevel("debug")
	}
}

func SetLogDateTime(logdate bool) {
	logDateTime = logdate
}

/* PRINT */

func Print(v ...interface{}) {
	Info(v...)
}

func Debug(v ...interface{})  { debugLevel.emit(fmt.Sprint(v...)) }
func Info(v ...interface{})   { infoLevel.emit(fmt.Sprint(v...)) }
func Note(v ...interface{})   { noteLevel.emit(fmt.Sprint(v...)) }
func Warn(v ...interface{})   { warnLevel.emit(fmt.Sprint(v...)) }
func Error(v ...interface{})  { errLevel.emit(fmt.Sprint(v...)) }
func Crit(v ...interface{})   { critLevel.emit(fmt.Sprint(v...)) }

// Panic logs at error level and panics, keeping the process's own defer
// chain able to run (unlike Fatal, which exits immediately).
func Panic(v ...interface{}) {
	Error(v...)
	panic("tts: panic triggered by log.Panic")
}

// Fatal logs at error level and exits. Every reactor/server startup
// failure in cmd/tts-server goes through this.
func Fatal(v ...interface{}) {
	Error(v...)
	os.Exit(1)
}

/* PRINT FORMAT */

func Printf(format string, v ...interface{}) {
	Infof(format, v...)
}

func Debugf(format string, v ...interface{}) { debugLevel.emit(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...interface{})  { infoLevel.emit(fmt.Sprintf(format, v...)) }
func Notef(format string, v ...interface{})  { noteLevel.emit(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...interface{})  { warnLevel.emit(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...interface{}) { errLevel.emit(fmt.Sprintf(format, v...)) }
func Critf(format string, v ...interface{})  { critLevel.emit(fmt.Sprintf(format, v...)) }

func Panicf(format string, v ...interface{}) {
	Errorf(format, v...)
	panic("tts: panic triggered by log.Panicf")
}

func Fatalf(format string, v ...interface{}) {
	Errorf(format, v...)
	os.Exit(1)
}

/* SPECIAL */

// Finfof writes directly to w at info level, bypassing InfoWriter — used
// when a caller already holds a specific destination (e.g. a per-request
// debug dump) rather than the process-wide info stream.
func Finfof(w io.Writer, format string, v ...interface{}) {
	if w == io.Discard {
		return
	}
	if logDateTime {
		fmt.Fprintf(w, time.Now().String()+InfoPrefix+format+"\n", v...)
	} else {
		fmt.Fprintf(w, InfoPrefix+format+"\n", v...)
	}
}
