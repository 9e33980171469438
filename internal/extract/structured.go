package extract

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Field describes one value extracted from a row.
type Field struct {
	// Name is the key of the value in Fields.
	Name string

	// Selector is resolved inside the row; the first match is used.
	// An empty selector addresses the row itself.
	Selector string

	// Attr names the attribute to read. An empty Attr reads the trimmed text.
	Attr string
}

// RowSpec describes a repeated structure in a document.
type RowSpec struct {
	// Row selects each row.
	Row string

	// Fields are read from every row.
	Fields []Field
}

// Fields holds the values of one row. Missing values are empty strings.
type Fields map[string]string

// Parse parses an HTML document.
func Parse(r io.Reader) (*goquery.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*goquery.Document, error) {
	return Parse(strings.NewReader(s))
}

// Structured extracts one Fields per row matched by spec.Row, in document order.
func Structured(doc *goquery.Document, spec RowSpec) []Fields {
	var rows []Fields
	doc.Find(spec.Row).Each(func(_ int, row *goquery.Selection) {
		fields := make(Fields, len(spec.Fields))
		for _, f := range spec.Fields {
			fields[f.Name] = value(row, f)
		}
		rows = append(rows, fields)
	})
	return rows
}

// value reads one field from a row.
func value(row *goquery.Selection, f Field) string {
	sel := row
	if f.Selector != "" {
		sel = row.Find(f.Selector).First()
	}
	if sel.Length() == 0 {
		return ""
	}
	if f.Attr != "" {
		v, _ := sel.Attr(f.Attr)
		return v
	}
	return strings.TrimSpace(sel.Text())
}
