package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level int

const (
	FATAL Level = iota
	ERROR
	WARNING
	STEP
	INFO
	DEBUG
)

var levelNames = map[Level]string{
	FATAL:   "fatal",
	ERROR:   "error",
	WARNING: "warn",
	STEP:    "",
	INFO:    "",
	DEBUG:   "debug",
}

type Record struct {
	Level     Level
	Component string
	Message   string
}

func Debugf(msg string, args ...interface{}) {
	defaultLogBroker.Records <- Record{DEBUG, "", fmt.Sprintf(msg, args...)}
}

func Infof(msg string, args ...interface{}) {
	defaultLogBroker.Records <- Record{INFO, "", fmt.Sprintf(msg, args...)}
}

func Warnf(msg string, args ...interface{}) {
	defaultLogBroker.Records <- Record{WARNING, "", fmt.Sprintf(msg, args...)}
}

func Errorf(msg string, args ...interface{}) {
	defaultLogBroker.Records <- Record{ERROR, "", fmt.Sprintf(msg, args...)}
}

// SetQuiet suppresses info and debug records. Warnings, errors and step
// timings are still printed.
func SetQuiet(quiet bool) {
	defaultLogBroker.setQuiet(quiet)
}

// SetVerbose enables debug records.
func SetVerbose(verbose bool) {
	defaultLogBroker.setVerbose(verbose)
}

// SetOutput redirects all log output. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	defaultLogBroker.setOutput(w)
}

type Logger struct {
	Component string
}

func (l *Logger) Print(args ...interface{}) {
	defaultLogBroker.Records <- Record{INFO, l.Component, fmt.Sprint(args...)}
}

func (l *Logger) Printf(msg string, args ...interface{}) {
	defaultLogBroker.Records <- Record{INFO, l.Component, fmt.Sprintf(msg, args...)}
}

func (l *Logger) Debugf(msg string, args ...interface{}) {
	defaultLogBroker.Records <- Record{DEBUG, l.Component, fmt.Sprintf(msg, args...)}
}

func (l *Logger) Warn(args ...interface{}) {
	defaultLogBroker.Records <- Record{WARNING, l.Component, fmt.Sprint(args...)}
}

func (l *Logger) Warnf(msg string, args ...interface{}) {
	defaultLogBroker.Records <- Record{WARNING, l.Component, fmt.Sprintf(msg, args...)}
}

func (l *Logger) Errorf(msg string, args ...interface{}) {
	defaultLogBroker.Records <- Record{ERROR, l.Component, fmt.Sprintf(msg, args...)}
}

// Fatal prints the message, flushes all pending records and exits.
func (l *Logger) Fatal(args ...interface{}) {
	defaultLogBroker.Records <- Record{FATAL, l.Component, fmt.Sprint(args...)}
	Shutdown()
	os.Exit(1)
}

func (l *Logger) Fatalf(msg string, args ...interface{}) {
	defaultLogBroker.Records <- Record{FATAL, l.Component, fmt.Sprintf(msg, args...)}
	Shutdown()
	os.Exit(1)
}

// StartStep marks the begin of a (long running) step. The returned
// name needs to be passed to StopStep.
func (l *Logger) StartStep(msg string) string {
	defaultLogBroker.StepStart <- Step{l.Component, msg}
	return msg
}

func (l *Logger) StopStep(msg string) {
	defaultLogBroker.StepStop <- Step{l.Component, msg}
}

func NewLogger(component string) *Logger {
	return &Logger{component}
}

type Step struct {
	Component string
	Name      string
}

type LogBroker struct {
	Records   chan Record
	StepStart chan Step
	StepStop  chan Step
	quit      chan bool
	wg        *sync.WaitGroup

	mu      sync.Mutex
	out     io.Writer
	quiet   bool
	verbose bool
}

func (l *LogBroker) setQuiet(quiet bool) {
	l.mu.Lock()
	l.quiet = quiet
	l.mu.Unlock()
}

func (l *LogBroker) setVerbose(verbose bool) {
	l.mu.Lock()
	l.verbose = verbose
	l.mu.Unlock()
}

func (l *LogBroker) setOutput(w io.Writer) {
	l.mu.Lock()
	l.out = w
	l.mu.Unlock()
}

func (l *LogBroker) loop() {
	steps := make(map[Step]time.Time)
For:
	for {
		select {
		case record := <-l.Records:
			l.printRecord(record)
		case step := <-l.StepStart:
			steps[step] = time.Now()
			l.printRecord(Record{INFO, step.Component, "Starting: " + step.Name})
		case step := <-l.StepStop:
			startTime := steps[step]
			delete(steps, step)
			duration := time.Since(startTime)
			l.printRecord(Record{STEP, step.Component, step.Name + " took: " + duration.String()})
		case <-l.quit:
			break For
		}
	}
Flush:
	// after quit, print all records from chan
	for {
		select {
		case record := <-l.Records:
			l.printRecord(record)
		default:
			break Flush
		}
	}
	l.wg.Done()
}

func (l *LogBroker) printRecord(record Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if record.Level == DEBUG && !l.verbose {
		return
	}
	if record.Level == INFO && l.quiet {
		return
	}
	fmt.Fprint(l.out, "[", time.Now().Format(time.Stamp), "] ")
	if name := levelNames[record.Level]; name != "" {
		fmt.Fprint(l.out, "[", name, "] ")
	}
	if record.Component != "" {
		fmt.Fprint(l.out, "[", record.Component, "] ")
	}
	fmt.Fprintln(l.out, record.Message)
}

// Shutdown waits till all pending records are printed. The broker
// keeps running afterwards, so Shutdown can be called more than once.
func Shutdown() {
	defaultLogBroker.quit <- true
	defaultLogBroker.wg.Wait()
	defaultLogBroker.wg.Add(1)
	go defaultLogBroker.loop()
}

var defaultLogBroker *LogBroker

func init() {
	defaultLogBroker = &LogBroker{
		Records:   make(chan Record, 8),
		StepStart: make(chan Step),
		StepStop:  make(chan Step),
		quit:      make(chan bool),
		wg:        &sync.WaitGroup{},
		out:       os.Stderr,
	}
	defaultLogBroker.wg.Add(1)
	go defaultLogBroker.loop()
}
