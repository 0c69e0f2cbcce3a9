package bus

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/xh-polaris/docflow-core-api/pkg/logs"
)

var _ watermill.LoggerAdapter = (*logger)(nil)

// logger 将watermill的日志输出到logs
type logger struct {
	fields watermill.LogFields
}

func NewLogger() watermill.LoggerAdapter {
	return &logger{}
}

func (l *logger) Error(msg string, err error, fields watermill.LogFields) {
	logs.Errorf("[watermill] %s err=%v%s", msg, err, l.format(fields))
}

func (l *logger) Info(msg string, fields watermill.LogFields) {
	logs.Infof("[watermill] %s%s", msg, l.format(fields))
}

func (l *logger) Debug(msg string, fields watermill.LogFields) {
	logs.Debugf("[watermill] %s%s", msg, l.format(fields))
}

// Trace 过于频繁, 按debug输出
func (l *logger) Trace(msg string, fields watermill.LogFields) {
	logs.Debugf("[watermill] %s%s", msg, l.format(fields))
}

func (l *logger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &logger{fields: l.fields.Add(fields)}
}

func (l *logger) format(fields watermill.LogFields) string {
	all := l.fields.Add(fields)
	if len(all) == 0 {
		return ""
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf(" %s=%v", k, all[k]))
	}
	return sb.String()
}
