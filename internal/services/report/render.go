package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/xelth-com/berrycheck/internal/metric"
	"github.com/xelth-com/berrycheck/internal/models"
)

// Document is everything printed on an inspection report
type Document struct {
	Inspection      models.Inspection
	CommodityName   string
	TemplateName    string
	TemplateVersion int
	Groups          []metric.Group[interface{}]
	Fields          map[string]models.MetricField
	LinkURL         string
	GeneratedAt     time.Time
}

// label returns the template label of a key, or one derived from the key
func (d Document) label(key string) string {
	if f, ok := d.Fields[key]; ok && f.Label != "" {
		return f.Label
	}
	return metric.HumanLabel(key)
}

func (d Document) unit(key string) string {
	if f, ok := d.Fields[key]; ok {
		return f.Unit
	}
	return ""
}

// groupTitle turns a key prefix into a section heading
func groupTitle(name string) string {
	if name == metric.OtherGroup {
		return "Otros"
	}
	return metric.HumanLabel(name)
}

// Render draws the report as an A4 PDF
func Render(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	insp := doc.Inspection

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(140, 8, tr("Informe de Inspección de Calidad"), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(140, 6, tr(fmt.Sprintf("Inspección #%d  |  %s", insp.ID, doc.CommodityName)), "", 1, "L", false, 0, "")
	if doc.TemplateName != "" {
		pdf.CellFormat(140, 6, tr(fmt.Sprintf("Plantilla: %s v%d", doc.TemplateName, doc.TemplateVersion)), "", 1, "L", false, 0, "")
	}

	if doc.LinkURL != "" {
		qrPng, err := qrcode.Encode(doc.LinkURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode qr: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPng))
		pdf.ImageOptions("qr", 165, 12, 30, 30, false, opts, 0, "")
	}

	pdf.SetY(45)
	section(pdf, tr("Datos del lote"))
	header := [][2]string{
		{"Productor", insp.Producer},
		{"Lote", insp.Lot},
		{"Variedad", insp.Variety},
		{"Calibre", insp.Caliber},
		{"Código envase", insp.PackagingCode},
		{"Tipo envase", insp.PackagingType},
		{"Fecha envasado", insp.PackagingDate},
		{"Peso neto", formatFloat(insp.NetWeight, "kg")},
		{"Brix promedio", formatFloat(insp.BrixAvg, "")},
		{"T° agua", formatFloat(insp.TempWater, "°C")},
		{"T° ambiente", formatFloat(insp.TempAmbient, "°C")},
		{"T° pulpa", formatFloat(insp.TempPulp, "°C")},
	}
	for _, kv := range header {
		row(pdf, tr(kv[0]), tr(kv[1]))
	}

	for _, g := range doc.Groups {
		pdf.Ln(3)
		section(pdf, tr(groupTitle(g.Name)))
		for _, item := range g.Items {
			value := formatValue(item.Value)
			if u := doc.unit(item.Key); u != "" && value != "" {
				value += " " + u
			}
			row(pdf, tr(doc.label(item.Key)), tr(value))
		}
	}

	if strings.TrimSpace(insp.Notes) != "" {
		pdf.Ln(3)
		section(pdf, tr("Observaciones"))
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(insp.Notes), "", "L", false)
	}

	pdf.SetY(-20)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, tr("Generado "+doc.GeneratedAt.Format("2006-01-02 15:04")), "", 0, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(230, 236, 245)
	pdf.CellFormat(0, 7, title, "", 1, "L", true, 0, "")
}

func row(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(70, 6, label, "B", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, value, "B", 1, "L", false, 0, "")
}

func formatFloat(v *float64, unit string) string {
	if v == nil {
		return ""
	}
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", *v), "0"), ".")
	if unit != "" {
		s += " " + unit
	}
	return s
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		return formatFloat(&t, "")
	case bool:
		if t {
			return "Sí"
		}
		return "No"
	case string:
		return t
	}
	return fmt.Sprint(v)
}
