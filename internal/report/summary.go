// Package report renders human-readable run summaries for the CLI.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/shelfhound/shelfhound/internal/crawl"
	"github.com/shelfhound/shelfhound/internal/images"
	"github.com/shelfhound/shelfhound/internal/resolve"
)

// maxValueWidth caps cell width in probe output so one long description
// does not wreck the table.
const maxValueWidth = 60

// Summary renders the end-of-run report: a per-subcategory table,
// overall counters, and the produced output files.
func Summary(session *crawl.Session, imgRes *images.Result, outputs []string) string {
	var b strings.Builder

	rows := [][]string{{"Subcategory", "Products", "Images"}}
	totalImages := 0
	for _, g := range images.GroupBySubcategory(session.Products) {
		n := 0
		if imgRes != nil {
			n = imgRes.BySubcategory[g.Name]
		}
		totalImages += n
		rows = append(rows, []string{g.Name, strconv.Itoa(len(g.Products)), strconv.Itoa(n)})
	}
	rows = append(rows, []string{"Total", strconv.Itoa(len(session.Products)), strconv.Itoa(totalImages)})

	b.WriteString(renderTable(rows))
	b.WriteString("\n")

	st := session.Stats
	fmt.Fprintf(&b, "Recorded %d products (%d duplicates skipped, %d pages failed) in %s.\n",
		st.ProductsRecorded, st.DuplicatesSkipped, st.PagesFailed,
		session.Elapsed().Round(10*time.Millisecond))

	if len(outputs) > 0 {
		b.WriteString("Outputs:\n")
		for _, o := range outputs {
			fmt.Fprintf(&b, "  - %s\n", o)
		}
	}

	return b.String()
}

// Probe renders a single page's resolved fields in rule order, with the
// tier each value came from. Rules that resolved nothing still get a
// row, so gaps are visible.
func Probe(res *resolve.Result, fieldOrder []string) string {
	rows := [][]string{{"Field", "Value", "Source"}}

	urlCell, urlSource := "(unresolved)", "-"
	if res.URL != "" {
		urlCell, urlSource = clip(res.URL), string(res.URLSource)
	}
	rows = append(rows, []string{"url", urlCell, urlSource})
	for _, name := range fieldOrder {
		fv, ok := res.Fields[name]
		if !ok {
			rows = append(rows, []string{name, "(unresolved)", "-"})
			continue
		}
		rows = append(rows, []string{name, clip(fv.Value), string(fv.Source)})
	}

	imgCell := "(none)"
	if len(res.ImageURLs) > 0 {
		imgCell = clip(res.ImageURLs[0])
		if len(res.ImageURLs) > 1 {
			imgCell += fmt.Sprintf(" (+%d more)", len(res.ImageURLs)-1)
		}
	}
	imgSource := "-"
	if len(res.ImageURLs) > 0 {
		imgSource = string(res.ImageSource)
	}
	rows = append(rows, []string{"image_urls", imgCell, imgSource})

	return renderTable(rows)
}

func clip(s string) string {
	return runewidth.Truncate(s, maxValueWidth, "...")
}

// renderTable lays out rows as a pipe-delimited table, padded on
// display width so multibyte labels line up. The first row is treated
// as the header.
func renderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	cols := len(rows[0])
	widths := make([]int, cols)
	for _, row := range rows {
		for i := 0; i < len(row) && i < cols; i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(row []string) {
		b.WriteString("|")
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(" ")
			b.WriteString(cell)
			if pad := widths[i] - runewidth.StringWidth(cell); pad > 0 {
				b.WriteString(strings.Repeat(" ", pad))
			}
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|")
	for i := 0; i < cols; i++ {
		b.WriteString(strings.Repeat("-", widths[i]+2))
		b.WriteString("|")
	}
	b.WriteString("\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}

	return b.String()
}
