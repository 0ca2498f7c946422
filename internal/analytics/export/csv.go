// Package export serialises analytics reports to CSV and XLSX.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/meridian-erp/meridian-erp/internal/analytics"
)

// WriteAgingCSV serialises one side of an aging report.
func WriteAgingCSV(w io.Writer, lines []analytics.AgingLine) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Party", "0-30", "31-60", "61-90", "91-120", "120+", "Total"}); err != nil {
		return err
	}
	for _, line := range lines {
		if err := writer.Write([]string{
			line.PartyName,
			formatFloat(line.Current),
			formatFloat(line.Days31),
			formatFloat(line.Days61),
			formatFloat(line.Days91),
			formatFloat(line.Over120),
			formatFloat(line.Total),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteRegisterCSV emits a sales or purchase register as CSV.
func WriteRegisterCSV(w io.Writer, report analytics.RegisterReport) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Date", "Type", "Number", "Party", "Subtotal", "Discount", "Tax", "WHT", "Total", "Paid", "Payment Status"}); err != nil {
		return err
	}
	for _, row := range report.Rows {
		if err := writer.Write([]string{
			row.DocDate.Format("2006-01-02"),
			row.DocType,
			row.Number,
			row.PartyName,
			formatFloat(row.Subtotal),
			formatFloat(row.Discount),
			formatFloat(row.Tax),
			formatFloat(row.WHT),
			formatFloat(row.Total),
			formatFloat(row.AmountPaid),
			row.PaymentStatus,
		}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{"", "", "", "Totals", formatFloat(report.TotalNet), "", formatFloat(report.TotalTax), "", formatFloat(report.Total), "", ""}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
