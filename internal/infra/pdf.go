package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tillpoint/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// BuildClosingReport renders the closing summary for a closed session as a
// PDF and returns the file path. Figures come straight from the persisted
// session row — the report is a view, never a recomputation.
func BuildClosingReport(storagePath string, sess *model.RegisterSession, reg *model.Register, branch *model.Branch) (string, error) {
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Register closing report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Register Closing Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	line := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(50, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
	}

	line("Branch", branch.Name)
	line("Register", fmt.Sprintf("%s (#%d)", reg.Name, reg.RegisterNumber))
	line("Session", sess.ID.String())
	line("Shift", sess.ShiftType)
	line("Opened at", sess.OpenedAt.Format(time.RFC3339))
	if sess.ClosedAt != nil {
		line("Closed at", sess.ClosedAt.Format(time.RFC3339))
	}
	if sess.ReopenedAt != nil {
		line("Reopened at", sess.ReopenedAt.Format(time.RFC3339))
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, "Reconciliation")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "B", 10)
	for _, h := range []string{"Channel", "Declared", "Expected", "Discrepancy"} {
		pdf.CellFormat(40, 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	row := func(channel string, declared, expected, disc *decimal.Decimal) {
		pdf.CellFormat(40, 7, channel, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, decStr(declared), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, decStr(expected), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, decStr(disc), "1", 1, "R", false, 0, "")
	}
	row("Cash", sess.DeclaredCash, sess.ExpectedCash, sess.DiscrepancyCash)
	row("Card", sess.DeclaredCard, sess.ExpectedCard, sess.DiscrepancyCard)
	row("QR", sess.DeclaredQR, sess.ExpectedQR, sess.DiscrepancyQR)
	row("Transfer", sess.DeclaredTransfer, sess.ExpectedTransfer, sess.DiscrepancyTransfer)

	if sess.ClosingDenominations != nil && len(sess.ClosingDenominations.Entries) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 8, "Closing count")
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 10)
		for _, e := range sess.ClosingDenominations.Entries {
			pdf.CellFormat(0, 6, fmt.Sprintf("%s x %d", e.Label, e.Count), "", 1, "L", false, 0, "")
		}
		pdf.CellFormat(0, 6, fmt.Sprintf("Coins: %s", sess.ClosingDenominations.Coins), "", 1, "L", false, 0, "")
	}

	if sess.ClosingNotes != nil && *sess.ClosingNotes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, "Notes: "+*sess.ClosingNotes, "", "L", false)
	}

	path := filepath.Join(storagePath, fmt.Sprintf("closing-%s.pdf", sess.ID))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("pdf: write report: %w", err)
	}
	return path, nil
}

func decStr(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(2)
}
