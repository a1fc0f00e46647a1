package logger

import (
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Mirror copies every entry written through l to sink, formatted as one line. The returned
// restore function puts back the exact hook set that was installed before the call; it is
// safe to call more than once.
func (l *LogrusLogger) Mirror(sink func(line string)) (restore func()) {
	hook := &mirrorHook{
		sink: sink,
		formatter: &logrus.TextFormatter{
			DisableColors:    true,
			DisableTimestamp: true,
		},
	}

	current := l.base.ReplaceHooks(make(logrus.LevelHooks))
	saved := cloneHooks(current)

	next := cloneHooks(current)
	next.Add(hook)
	l.base.ReplaceHooks(next)

	var once sync.Once

	return func() {
		once.Do(func() {
			l.base.ReplaceHooks(saved)
		})
	}
}

func cloneHooks(hooks logrus.LevelHooks) logrus.LevelHooks {
	out := make(logrus.LevelHooks, len(hooks))
	for lvl, hs := range hooks {
		out[lvl] = slices.Clone(hs)
	}

	return out
}

type mirrorHook struct {
	sink      func(line string)
	formatter logrus.Formatter
}

func (*mirrorHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *mirrorHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	h.sink(strings.TrimRight(string(line), "\n"))

	return nil
}
