package bulk

import (
	"bytes"
	"strings"
)

// csvWriter quotes every field and ends rows with "\n". encoding/csv only
// quotes fields that need it, which spreadsheet imports downstream reject.
type csvWriter struct {
	buf bytes.Buffer
}

func (w *csvWriter) writeRow(fields []string) {
	for i, field := range fields {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		w.buf.WriteByte('"')
		w.buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
		w.buf.WriteByte('"')
	}
	w.buf.WriteByte('\n')
}

func (w *csvWriter) Bytes() []byte {
	return w.buf.Bytes()
}
