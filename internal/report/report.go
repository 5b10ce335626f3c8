// Package report renders a comparison record as an HTML table suitable for an
// email body, plus a short summary token for the subject line.
package report

import (
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/storagesnap/s3-storage-report/internal/delta"
)

// Document is a rendered report.
type Document struct {
	// HTML is the report body: an optional intro paragraph and the bucket table.
	HTML string
	// Summary combines the total deltas, e.g. "+1,204 files, +512.3 MiB".
	// Meant as a subject line suffix.
	Summary string
}

type row struct {
	Label  string
	Total  bool
	Shaded bool
	Files  string
	DFiles string
	Bytes  string
	DBytes string
}

type templateData struct {
	Elapsed string
	Now     string
	Rows    []row
}

var reportTemplate = template.Must(template.New("report").Parse(`{{if .Elapsed}}<p>In the {{.Elapsed}} leading up to {{.Now}}:</p>{{end}}
<table>
<thead>
<tr style="background-color: #eee">
<th>Bucket</th>
<th colspan="2">Files</th>
<th colspan="2">Size</th>
</tr>
</thead>
<tbody>
{{range .Rows}}<tr{{if .Shaded}} style="background-color: #def"{{end}}>
<td style="padding-left: 0.5em; padding-right: 0.5em;">{{if .Total}}<b>Total</b>{{else}}{{.Label}}{{end}}</td>
<td style="padding-left: 0.5em; padding-right: 0.5em; font-family: monospace; text-align: right;">{{.Files}}</td>
<td style="padding-left: 0.5em; padding-right: 0.5em; font-family: monospace; text-align: right;">{{.DFiles}}</td>
<td style="padding-left: 0.5em; padding-right: 0.5em; font-family: monospace; text-align: right;">{{.Bytes}}</td>
<td style="padding-left: 0.5em; padding-right: 0.5em; font-family: monospace; text-align: right;">{{.DBytes}}</td>
</tr>
{{end}}</tbody>
</table>`))

// Render formats a comparison record. It is a pure function: the same record
// always yields the same document.
func Render(record *delta.Record) *Document {
	names := make([]string, 0, len(record.Buckets))
	for name := range record.Buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]row, 0, len(names)+1)
	for _, name := range names {
		bucket := record.Buckets[name]
		rows = append(rows, row{
			Label:  name,
			Shaded: len(rows)%2 == 1,
			Files:  FormatCount(bucket.Files, false),
			DFiles: FormatCount(bucket.DFiles, true),
			Bytes:  FormatBytes(bucket.Bytes, false),
			DBytes: FormatBytes(bucket.DBytes, true),
		})
	}
	rows = append(rows, row{
		Total:  true,
		Shaded: len(rows)%2 == 1,
		Files:  FormatCount(record.TotalFiles, false),
		DFiles: FormatCount(record.TotalDFiles, true),
		Bytes:  FormatBytes(record.TotalBytes, false),
		DBytes: FormatBytes(record.TotalDBytes, true),
	})

	data := templateData{
		Now:  record.Now.Format(time.RFC3339),
		Rows: rows,
	}
	if record.Elapsed != 0 {
		data.Elapsed = FormatDuration(record.Elapsed)
	}

	var html strings.Builder
	// The template only fails on invalid templates, which template.Must
	// already rules out.
	_ = reportTemplate.Execute(&html, data)

	return &Document{
		HTML:    html.String(),
		Summary: FormatCount(record.TotalDFiles, true) + " files, " + FormatBytes(record.TotalDBytes, true),
	}
}
