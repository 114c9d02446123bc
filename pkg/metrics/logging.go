package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

// LogFormatter is a logrus.Formatter that forwards every entry, with all of its
// fields, to New Relic and enriches the formatted line with linking metadata.
// Entries logged with a context carrying a transaction are attached to it.
//
// With no application and no transaction it only applies the wrapped formatter.
type LogFormatter struct {
	app       *newrelic.Application
	formatter logrus.Formatter
}

func NewLogFormatter(app *newrelic.Application, formatter logrus.Formatter) *LogFormatter {
	return &LogFormatter{
		app:       app,
		formatter: formatter,
	}
}

func (f *LogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	logBytes, err := f.formatter.Format(e)
	if err != nil {
		return nil, err
	}

	var txn *newrelic.Transaction
	if e.Context != nil {
		txn = newrelic.FromContext(e.Context)
	}
	if txn == nil && f.app == nil {
		return logBytes, nil
	}

	logData := newrelic.LogData{
		Severity: e.Level.String(),
		Message:  logMessage(e),
	}

	b := bytes.NewBuffer(bytes.TrimRight(logBytes, "\n"))
	if txn != nil {
		txn.RecordLog(logData)
		err = newrelic.EnrichLog(b, newrelic.FromTxn(txn))
	} else {
		f.app.RecordLog(logData)
		err = newrelic.EnrichLog(b, newrelic.FromApp(f.app))
	}
	if err != nil {
		return nil, err
	}

	b.WriteString("\n")
	return b.Bytes(), nil
}

// logMessage folds the entry's fields into its message, since New Relic log
// data carries no attributes
func logMessage(e *logrus.Entry) string {
	if len(e.Data) == 0 {
		return e.Message
	}

	errorString := "<nil>"
	extraData := make(map[string]interface{})
	for k, v := range e.Data {
		if k == logrus.ErrorKey {
			if typed, ok := v.(error); ok {
				errorString = fmt.Sprintf("%q", typed.Error())
			}
			continue
		}
		extraData[k] = v
	}

	extraDataJsonBytes, err := json.Marshal(extraData)
	if err != nil {
		keys := make([]string, 0, len(extraData))
		for k := range extraData {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("message=%q, error=%s, keys=%v", e.Message, errorString, keys)
	}
	return fmt.Sprintf("message=%q, error=%s, data=%s", e.Message, errorString, extraDataJsonBytes)
}
