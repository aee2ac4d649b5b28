package httpapi

import (
	"bytes"
	"fmt"
	"net/http"

	"scentpanel/internal/domain"
	"scentpanel/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// RatingsHandler coordinator read access to collected ratings, plus the
// raw .xlsx download. No aggregation happens here.
type RatingsHandler struct {
	ratings repository.RatingsRepo
	logger  *zap.Logger
}

func NewRatingsHandler(ratings repository.RatingsRepo, logger *zap.Logger) *RatingsHandler {
	return &RatingsHandler{ratings: ratings, logger: logger}
}

func (h *RatingsHandler) List(w http.ResponseWriter, r *http.Request) {
	analysisID := r.URL.Query().Get("analysis_id")
	if analysisID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("analysis_id query parameter is required"))
		return
	}

	ratings, err := h.ratings.ListByAnalysis(r.Context(), analysisID)
	if err != nil {
		writeError(w, err)
		return
	}
	if ratings == nil {
		ratings = []domain.Rating{}
	}
	writeJSON(w, http.StatusOK, Ok(ratings))
}

var ratingsExportHeader = []string{
	"Response ID",
	"Analysis ID",
	"Panelist",
	"Room",
	"Sample Ref",
	"Intensity",
	"Pleasantness",
	"Descriptor",
	"Description",
	"Submitted At",
}

func (h *RatingsHandler) Export(w http.ResponseWriter, r *http.Request) {
	analysisID := r.URL.Query().Get("analysis_id")
	if analysisID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("analysis_id query parameter is required"))
		return
	}

	ratings, err := h.ratings.ListByAnalysis(r.Context(), analysisID)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := generateRatingsExcel(ratings)
	if err != nil {
		h.logger.Error("Failed to generate ratings export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ratings-%s.xlsx", analysisID))
	_, _ = w.Write(data)
}

func generateRatingsExcel(ratings []domain.Rating) ([]byte, error) {
	f := excelize.NewFile()
	// Note: don't defer Close() before WriteTo; the file must stay open.

	sheetName := "Ratings"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	for col, header := range ratingsExportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, rating := range ratings {
		values := []any{
			rating.ResponseID,
			rating.AnalysisID,
			rating.TesterID,
			rating.RoomNumber,
			rating.SampleRef,
			rating.Intensity,
			rating.Pleasantness,
			string(rating.Descriptor),
			rating.Description,
			rating.SubmittedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write row %d: %w", row+2, err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	f.Close()
	return buf.Bytes(), nil
}
