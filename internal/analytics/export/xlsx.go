package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/meridian-erp/meridian-erp/internal/analytics"
)

// BuildAgingXLSX renders the full aging report as a two-sheet workbook.
func BuildAgingXLSX(report analytics.AgingReport) ([]byte, error) {
	f := excelize.NewFile()
	receivableSheet := "receivables"
	payableSheet := "payables"
	f.SetSheetName("Sheet1", receivableSheet)
	if _, err := f.NewSheet(payableSheet); err != nil {
		return nil, err
	}

	writeAgingSheet(f, receivableSheet, report.Receivables)
	writeAgingSheet(f, payableSheet, report.Payables)
	_ = f.SetCellValue(receivableSheet, "I1", "As of")
	_ = f.SetCellValue(receivableSheet, "J1", report.AsOf.Format("2006-01-02"))

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeAgingSheet(f *excelize.File, sheet string, lines []analytics.AgingLine) {
	headers := []string{"Party", "0-30", "31-60", "61-90", "91-120", "120+", "Total"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		_ = f.SetCellValue(sheet, cell, header)
	}
	for i, line := range lines {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), line.PartyName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), line.Current)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), line.Days31)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), line.Days61)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), line.Days91)
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), line.Over120)
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), line.Total)
	}
}

// BuildRegisterXLSX renders a register report as a single-sheet workbook.
func BuildRegisterXLSX(title string, report analytics.RegisterReport) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "register"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", title)
	_ = f.SetCellValue(sheet, "B1", report.From.Format("2006-01-02"))
	_ = f.SetCellValue(sheet, "C1", report.To.Format("2006-01-02"))

	headers := []string{"Date", "Type", "Number", "Party", "Subtotal", "Discount", "Tax", "WHT", "Total", "Paid", "Payment Status"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		_ = f.SetCellValue(sheet, cell, header)
	}
	for i, row := range report.Rows {
		values := []any{
			row.DocDate.Format("2006-01-02"), row.DocType, row.Number, row.PartyName,
			row.Subtotal, row.Discount, row.Tax, row.WHT, row.Total, row.AmountPaid, row.PaymentStatus,
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+4)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
