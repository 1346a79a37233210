package httpadapter

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/healthchain/rxintake/internal/core/domain"
)

const exportSheet = "Uploads"

// dashboardExport renders the clinician's upload history as an xlsx
// workbook, one row per ledger record.
func (rt *Router) dashboardExport(w http.ResponseWriter, r *http.Request, session domain.Session) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	uploads, err := rt.dashUC.ListUploads(r.Context(), session.ClinicianID)
	if err != nil {
		writeError(w, err)
		return
	}

	workbook, err := buildUploadsWorkbook(uploads)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build export"})
		return
	}
	defer func() {
		if closeErr := workbook.Close(); closeErr != nil {
			slog.Warn("failed to close export workbook", "error", closeErr)
		}
	}()

	filename := fmt.Sprintf("uploads_%s_%s.xlsx", session.ClinicianID, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := workbook.Write(w); err != nil {
		slog.Error("failed to stream export workbook", "error", err)
	}
}

func buildUploadsWorkbook(uploads []domain.DashboardUpload) (*excelize.File, error) {
	workbook := excelize.NewFile()
	index, err := workbook.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	workbook.SetActiveSheet(index)
	if err := workbook.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	header := []any{"Patient ID", "CID", "Timestamp", "IPFS Link"}
	if err := workbook.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, upload := range uploads {
		row := []any{upload.PatientID, upload.CID, upload.Timestamp, upload.IPFSLink}
		cell := fmt.Sprintf("A%d", i+2)
		if err := workbook.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	return workbook, nil
}
