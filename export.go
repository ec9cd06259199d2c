package dentdir

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// ExportContentType is the MIME type of exported files.
const ExportContentType = "text/csv; charset=utf-8"

// ExportSeparator separates fields in exported rows. Spreadsheet tools in
// Turkish locales expect a semicolon.
const ExportSeparator = ";"

// utf8BOM makes spreadsheet tools decode the file as UTF-8.
const utf8BOM = "\ufeff"

// ExportHeader returns the column titles of an export, in order.
func ExportHeader() []string {
	return []string{"Klinik Adi", "Telefon", "Sehir", "Ilce", "Adres", "Web Sitesi", "Rating", "Durum", "Notlar"}
}

// ExportFilename returns the download name for an export made at t.
func ExportFilename(t time.Time) string {
	return "dental_liste_" + t.Format("2006-01-02") + ".csv"
}

// WriteCSV writes clinics as a BOM-prefixed, semicolon separated file with
// a header row. Every field is double-quoted and embedded quotes are
// doubled. An empty list writes nothing. Returns the number of data rows
// written.
func WriteCSV(w io.Writer, clinics []*Clinic) (int, error) {
	if len(clinics) == 0 {
		return 0, nil
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(utf8BOM); err != nil {
		return 0, err
	}
	if err := writeRow(bw, ExportHeader()); err != nil {
		return 0, err
	}
	for i, c := range clinics {
		if err := writeRow(bw, exportRow(c)); err != nil {
			return i, err
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return len(clinics), nil
}

func exportRow(c *Clinic) []string {
	rating := ""
	if c.Rating != 0 {
		rating = strconv.FormatFloat(c.Rating, 'f', -1, 64)
	}
	status := c.Status
	if status == "" {
		status = StatusNone
	}
	return []string{c.Name, c.Phone, c.City, c.District, c.Address, c.Website, rating, string(status), c.Notes}
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if _, err := w.WriteString(ExportSeparator); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(quoteField(f)); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
