package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
)

// ExportService builds spreadsheet reports from read-only projections of
// check and customer data. Raw values come from the store; all formatting
// decisions live here.
type ExportService interface {
	ChecksWorkbook(ctx context.Context, from, to time.Time) (*excelize.File, error)
	CustomersWorkbook(ctx context.Context) (*excelize.File, error)
}

type exportServiceImpl struct {
	checkRepo    port.CheckRepository
	customerRepo port.CustomerRepository
	logger       Logger
}

// NewExportService creates a new ExportService
func NewExportService(
	checkRepo port.CheckRepository,
	customerRepo port.CustomerRepository,
	logger Logger,
) ExportService {
	return &exportServiceImpl{
		checkRepo:    checkRepo,
		customerRepo: customerRepo,
		logger:       logger,
	}
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
}

// ChecksWorkbook exports all checks created within [from, to]
func (s *exportServiceImpl) ChecksWorkbook(ctx context.Context, from, to time.Time) (*excelize.File, error) {
	checks, err := s.checkRepo.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Checks"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"#", "Code", "Amount (L)", "Status", "Printed", "Customer", "Phone", "Station", "Operator", "Created", "Used"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("set header: %w", err)
		}
	}
	if style, err := headerStyle(f); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		f.SetCellStyle(sheet, "A1", last, style)
	}

	total := decimal.Zero
	for i, check := range checks {
		row := i + 2
		usedAt := ""
		if check.UsedAt != nil {
			usedAt = check.UsedAt.Format(time.RFC3339)
		}
		values := []interface{}{
			i + 1,
			check.Code,
			check.AmountLiters().StringFixed(2),
			check.Status.String(),
			check.IsPrinted,
			check.CustomerName,
			check.CustomerPhone,
			check.StationName,
			check.OperatorName,
			check.CreatedAt.Format(time.RFC3339),
			usedAt,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("set cell: %w", err)
			}
		}
		total = total.Add(check.AmountLiters())
	}

	totalRow := len(checks) + 2
	f.SetCellValue(sheet, fmt.Sprintf("B%d", totalRow), "TOTAL:")
	f.SetCellValue(sheet, fmt.Sprintf("C%d", totalRow), total.StringFixed(2))

	s.logger.Info("Checks workbook built", "rows", len(checks))
	return f, nil
}

// CustomersWorkbook exports the customers report with a totals row
func (s *exportServiceImpl) CustomersWorkbook(ctx context.Context) (*excelize.File, error) {
	customers, err := s.customerRepo.Report(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load customers report: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Customers"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"#", "Full name", "Phone", "Telegram", "Balance (L)", "Checks", "Active", "Registered"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("set header: %w", err)
		}
	}
	if style, err := headerStyle(f); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		f.SetCellStyle(sheet, "A1", last, style)
	}

	totalBalance := decimal.Zero
	totalChecks := 0
	for i, c := range customers {
		row := i + 2
		telegram := ""
		if c.TelegramUsername != "" {
			telegram = "@" + c.TelegramUsername
		}
		balance := decimal.NewFromInt(c.BalanceCentiliters).Div(decimal.NewFromInt(100))
		values := []interface{}{
			i + 1,
			c.FullName,
			c.Phone,
			telegram,
			balance.StringFixed(2),
			c.UsedChecks,
			c.IsActive,
			c.CreatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("set cell: %w", err)
			}
		}
		totalBalance = totalBalance.Add(balance)
		totalChecks += c.UsedChecks
	}

	totalRow := len(customers) + 2
	f.SetCellValue(sheet, fmt.Sprintf("B%d", totalRow), "TOTAL:")
	f.SetCellValue(sheet, fmt.Sprintf("E%d", totalRow), totalBalance.StringFixed(2))
	f.SetCellValue(sheet, fmt.Sprintf("F%d", totalRow), totalChecks)

	s.logger.Info("Customers workbook built", "rows", len(customers))
	return f, nil
}
