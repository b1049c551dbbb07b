package logger

import (
	"bytes"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

type stringer interface {
	String() string
}

type logPair struct {
	logFn func(...any)
	obj   string
	msg   string
}

const (
	logSize   = 1000
	objMaxLen = 20
)

var (
	logCh     = make(chan logPair, logSize)
	drainOnce sync.Once
)

func init() {
	startDrain()
}

// startDrain runs the single consumer of logCh. Library users that never call Init
// still get their messages delivered instead of blocking once the channel fills up.
func startDrain() {
	drainOnce.Do(func() {
		go func() {
			sb := new(bytes.Buffer)
			for pair := range logCh {
				if len(pair.obj) > objMaxLen {
					pair.obj = pair.obj[:objMaxLen]
				}
				fmt.Fprintf(sb, "|%20s|%-100s", pair.obj, pair.msg)
				pair.logFn(sb.String())
				sb.Reset()
			}
		}()
	})
}

func objToString(obj any) (objStr string) {
	if obj == nil {
		objStr = "NIL"
	} else if stringerObj, ok := obj.(stringer); ok {
		objStr = stringerObj.String()
	} else if objStr, ok = obj.(string); ok {
	} else {
		t := reflect.TypeOf(obj)
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		objStr = t.Name()
	}
	return
}

// Init configures the level and the text formatter of the process-wide logger.
func Init(lvl logrus.Level) {
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		PadLevelText:    true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	startDrain()
}

func push(lvl logrus.Level, fn func(...any), object any, msg string) {
	if logrus.GetLevel() < lvl {
		return
	}
	logCh <- logPair{
		logFn: fn,
		obj:   objToString(object),
		msg:   msg,
	}
}

func Trace(object any, message string) {
	push(logrus.TraceLevel, logrus.Trace, object, message)
}

func Tracef(object any, message string, args ...any) {
	if logrus.GetLevel() < logrus.TraceLevel {
		return
	}
	push(logrus.TraceLevel, logrus.Trace, object, fmt.Sprintf(message, args...))
}

func Debug(object any, message string) {
	push(logrus.DebugLevel, logrus.Debug, object, message)
}

func Debugf(object any, message string, args ...any) {
	if logrus.GetLevel() < logrus.DebugLevel {
		return
	}
	push(logrus.DebugLevel, logrus.Debug, object, fmt.Sprintf(message, args...))
}

func Info(object any, message string) {
	push(logrus.InfoLevel, logrus.Info, object, message)
}

func Infof(object any, message string, args ...any) {
	if logrus.GetLevel() < logrus.InfoLevel {
		return
	}
	push(logrus.InfoLevel, logrus.Info, object, fmt.Sprintf(message, args...))
}

func Warning(object any, message string) {
	push(logrus.WarnLevel, logrus.Warning, object, message)
}

func Warningf(object any, message string, args ...any) {
	if logrus.GetLevel() < logrus.WarnLevel {
		return
	}
	push(logrus.WarnLevel, logrus.Warning, object, fmt.Sprintf(message, args...))
}

func Error(object any, message string) {
	push(logrus.ErrorLevel, logrus.Error, object, message)
}

func Errorf(object any, message string, args ...any) {
	if logrus.GetLevel() < logrus.ErrorLevel {
		return
	}
	push(logrus.ErrorLevel, logrus.Error, object, fmt.Sprintf(message, args...))
}

func Fatal(object any, message string) {
	objStr := objToString(object)
	if len(objStr) > objMaxLen {
		objStr = objStr[:objMaxLen]
	}
	logrus.Fatalf("|%20s|%-100s", objStr, message)
}

func Fatalf(object any, message string, args ...any) {
	Fatal(object, fmt.Sprintf(message, args...))
}
