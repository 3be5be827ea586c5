package api

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Money columns hold the exact two-decimal amount as a numeric cell.
const (
	firstMoneyCol = 7
	lastMoneyCol  = 9
	moneyNumFmt   = 2 // 0.00
)

var exportHeaders = []string{
	"ID", "Property", "Tenant", "Period start", "Period end", "Due date",
	"Amount", "Late fee", "Total due", "Status", "Paid date", "Method",
	"Days late", "Reminders", "Description",
}

// ExportPayments streams the caller's entries as an xlsx workbook. It takes
// the same filters as ListPayments.
// GET /api/payments/export
func (h *Handler) ExportPayments(w http.ResponseWriter, r *http.Request) {
	query, err := listQuery(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	payments, err := h.Service.ListEntries(r.Context(), CallerFrom(r.Context()), query)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Payments"
	index, err := f.NewSheet(sheet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: moneyNumFmt})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}

	now := h.Clock.Now()
	for i, p := range payments {
		dto := toPaymentDTO(p, now)
		paid := ""
		if p.PaidDate != nil {
			paid = p.PaidDate.Format(dateLayout)
		}
		row := []any{
			dto.ID, dto.PropertyID, dto.TenantID, dto.PeriodStart, dto.PeriodEnd,
			p.DueDate.Format(dateLayout),
			p.Amount, p.LateFee, dto.TotalDue,
			dto.Status, paid, dto.Method, dto.DaysLate, len(dto.Reminders), dto.Description,
		}
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if amount, ok := v.(decimal.Decimal); ok {
				f.SetCellDefault(sheet, cell, amount.StringFixed(2))
				continue
			}
			f.SetCellValue(sheet, cell, v)
		}
	}
	if len(payments) > 0 {
		from, _ := excelize.CoordinatesToCellName(firstMoneyCol, 2)
		to, _ := excelize.CoordinatesToCellName(lastMoneyCol, len(payments)+1)
		f.SetCellStyle(sheet, from, to, money)
	}

	fileName := fmt.Sprintf("payments_%s.xlsx", now.Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(w); err != nil {
		h.Log.Error("failed to write workbook", zap.Error(err))
	}
}
