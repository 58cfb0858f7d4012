package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"hallmeal-backend/internal/domain"
	"hallmeal-backend/internal/repository"
)

// MealListHandler exports the booked-meal list the kitchen works from.
// Supports pdf (the printed serving sheet), csv and xlsx.
type MealListHandler struct {
	Bookings repository.BookingRepository
	Halls    repository.HallRepository
}

func (h MealListHandler) RegisterRoutes(r chi.Router) {
	r.Get("/meal-lists/export", h.export)
}

func (h MealListHandler) export(w http.ResponseWriter, r *http.Request) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "pdf"
	}

	// The kitchen cooks from tomorrow's list by default.
	date := time.Now().AddDate(0, 0, 1)
	if d, err := parseDateQuery(r, "date"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	} else if d != nil {
		date = *d
	}

	hall, err := h.Halls.GetByID(r.Context(), hallID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	items, err := h.Bookings.ListForHallDate(r.Context(), hallID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filenameSuffix := date.Format("20060102")

	switch format {
	case "pdf":
		data, err := exportMealListPDF(hall.Name, date, items)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"meal_list_%s.pdf\"", filenameSuffix))
		_, _ = w.Write(data)
		return
	case "csv":
		data, err := exportMealListCSV(items)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"meal_list_%s.csv\"", filenameSuffix))
		_, _ = w.Write(data)
		return
	case "xlsx", "excel":
		data, err := exportMealListXLSX(items)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"meal_list_%s.xlsx\"", filenameSuffix))
		_, _ = w.Write(data)
		return
	default:
		writeError(w, http.StatusBadRequest, "invalid format (use pdf, csv or xlsx)")
		return
	}
}

// mealListSection splits one meal type's bookings into students first, then
// everyone else, and tallies the meat preferences for the kitchen footer.
type mealListSection struct {
	MealType    domain.MealType
	Students    []repository.BookingWithMember
	Others      []repository.BookingWithMember
	BeefUnits   int64
	MuttonUnits int64
	TotalUnits  int64
}

func buildMealListSections(items []repository.BookingWithMember) []mealListSection {
	byType := map[domain.MealType]*mealListSection{}
	for _, b := range items {
		sec, ok := byType[b.MealType]
		if !ok {
			sec = &mealListSection{MealType: b.MealType}
			byType[b.MealType] = sec
		}
		if b.Type == domain.MemberStudent {
			sec.Students = append(sec.Students, b)
		} else {
			sec.Others = append(sec.Others, b)
		}
		sec.TotalUnits += int64(b.Quantity)
		switch b.Preference {
		case domain.PrefMutton:
			sec.MuttonUnits += int64(b.Quantity)
		default:
			sec.BeefUnits += int64(b.Quantity)
		}
	}
	// Serving order, not first-appearance order.
	sections := make([]mealListSection, 0, len(byType))
	for _, mt := range domain.MealTypes {
		if sec, ok := byType[mt]; ok {
			sections = append(sections, *sec)
		}
	}
	return sections
}

// Core fonts are cp1252; keep the title ASCII.
func mealListTitle(hallName string) string {
	return hallName + " - Meal List"
}

func exportMealListPDF(hallName string, date time.Time, items []repository.BookingWithMember) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, mealListTitle(hallName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, date.Format("Monday, 02 January 2006"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	writeRows := func(label string, rows []repository.BookingWithMember) {
		if len(rows) == 0 {
			return
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, label, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(25, 6, "Code", "1", 0, "L", true, 0, "")
		pdf.CellFormat(70, 6, "Name", "1", 0, "L", true, 0, "")
		pdf.CellFormat(45, 6, "Dept / Designation", "1", 0, "L", true, 0, "")
		pdf.CellFormat(20, 6, "Pref", "1", 0, "C", true, 0, "")
		pdf.CellFormat(15, 6, "Qty", "1", 0, "C", true, 0, "")
		pdf.CellFormat(15, 6, "Sign", "1", 1, "C", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, b := range rows {
			detail := b.Department
			if detail == "" {
				detail = b.Designation
			}
			pdf.CellFormat(25, 6, b.Code, "1", 0, "L", false, 0, "")
			pdf.CellFormat(70, 6, b.Name, "1", 0, "L", false, 0, "")
			pdf.CellFormat(45, 6, detail, "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 6, string(b.Preference), "1", 0, "C", false, 0, "")
			pdf.CellFormat(15, 6, strconv.Itoa(b.Quantity), "1", 0, "C", false, 0, "")
			pdf.CellFormat(15, 6, "", "1", 1, "C", false, 0, "")
		}
		pdf.Ln(2)
	}

	for _, sec := range buildMealListSections(items) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, sectionTitle(sec.MealType), "B", 1, "L", false, 0, "")
		pdf.Ln(1)
		writeRows("Students", sec.Students)
		writeRows("Teachers & Staff", sec.Others)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 6, fmt.Sprintf("Total %d units (beef %d, mutton %d)",
			sec.TotalUnits, sec.BeefUnits, sec.MuttonUnits), "", 1, "R", false, 0, "")
		pdf.Ln(3)
	}
	if len(items) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(0, 8, "No meals booked for this day.", "", 1, "C", false, 0, "")
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sectionTitle(mt domain.MealType) string {
	switch mt {
	case domain.MealBreakfast:
		return "Breakfast"
	case domain.MealLunch:
		return "Lunch"
	case domain.MealDinner:
		return "Dinner"
	}
	return string(mt)
}

func exportMealListCSV(items []repository.BookingWithMember) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"meal_type", "member_type", "code", "name", "department", "designation", "preference", "quantity"})
	for _, b := range items {
		_ = w.Write([]string{
			string(b.MealType),
			string(b.Type),
			b.Code,
			b.Name,
			b.Department,
			b.Designation,
			string(b.Preference),
			strconv.Itoa(b.Quantity),
		})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func exportMealListXLSX(items []repository.BookingWithMember) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Meal List"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	header := []string{"Meal Type", "Member Type", "Code", "Name", "Department", "Designation", "Preference", "Qty"}
	for c, v := range header {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		_ = f.SetCellValue(sheet, cell, v)
	}
	for r, b := range items {
		row := r + 2
		values := []any{
			string(b.MealType),
			string(b.Type),
			b.Code,
			b.Name,
			b.Department,
			b.Designation,
			string(b.Preference),
			b.Quantity,
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "B", 12)
	_ = f.SetColWidth(sheet, "C", "C", 14)
	_ = f.SetColWidth(sheet, "D", "D", 28)
	_ = f.SetColWidth(sheet, "E", "F", 18)
	_ = f.SetColWidth(sheet, "G", "H", 10)

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	_ = f.SetCellStyle(sheet, "A1", "H1", style)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
