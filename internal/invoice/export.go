package invoice

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportRecordsXLSX renders the invoice history into an XLSX workbook, one
// row per record, newest first. This is the spreadsheet the original cloud
// backend would have appended rows to.
func (s *Service) ExportRecordsXLSX() ([]byte, error) {
	records, err := s.ListRecentRecords()
	if err != nil {
		return nil, err
	}

	properties, err := s.ListProperties()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(properties))
	for _, p := range properties {
		names[p.ID] = p.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Costs"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Date", "Seller", "Invoice number", "Property", "Net", "VAT", "Gross", "Currency", "Document link"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	for row, r := range records {
		values := []any{
			r.Data.Date,
			r.Data.SellerName,
			r.Data.InvoiceNumber,
			names[r.PropertyID],
			r.Data.NetAmount,
			r.Data.VATAmount,
			r.Data.GrossAmount,
			r.Data.Currency,
			r.Link,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", row+2, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encoding workbook: %w", err)
	}
	return buf.Bytes(), nil
}
