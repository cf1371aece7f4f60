// Package logging configures the engine's structured loggers. It mirrors
// the teacher's top-level logger package (a custom logrus.Formatter over
// a package-level *logrus.Logger) but scopes one logger per component
// instead of one global instance, so buffer pool, doublewrite and
// transaction log lines carry a "component" field for free.
package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// componentFormatter timestamps and tags every line with its component,
// matching the teacher's CustomFormatter layout.
type componentFormatter struct{}

func (componentFormatter) Format(e *logrus.Entry) ([]byte, error) {
	ts := e.Time.Format("15:04:05.000")
	component, _ := e.Data["component"].(string)
	if component == "" {
		component = "engine"
	}
	line := fmt.Sprintf("%s [%-5s] %-12s %s\n", ts, e.Level.String(), component, e.Message)
	return []byte(line), nil
}

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(componentFormatter{})
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel adjusts verbosity for every component logger sharing this
// base instance; hosts that never call it get InfoLevel.
func SetLevel(level logrus.Level) {
	base.SetLevel(level)
}

// For returns a component-scoped logger entry, e.g. logging.For("bufferpool").
func For(component string) *logrus.Entry {
	return base.WithField("component", component)
}
