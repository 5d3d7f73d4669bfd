package services

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"backend_parking/models"
)

// ReportService представляет сервис экспорта расчетных документов
type ReportService struct {
	DB *gorm.DB
}

// NewReportService создает новый экземпляр ReportService
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{DB: db}
}

// settlementExportData - плоское представление расчета для экспорта
type settlementExportData struct {
	settlement *models.BusinessSettlementHistory
	headers    []string
	rows       [][]interface{}
}

// loadSettlementExport загружает расчет с детализацией и готовит таблицу
func (rs *ReportService) loadSettlementExport(settlementID uint) (*settlementExportData, error) {
	var settlement models.BusinessSettlementHistory
	if err := rs.DB.
		Preload("Business").
		Preload("Branch").
		Preload("Details").
		First(&settlement, settlementID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewNotFoundError("расчет с ID %d не найден", settlementID)
		}
		return nil, fmt.Errorf("ошибка загрузки расчета: %w", err)
	}

	data := &settlementExportData{
		settlement: &settlement,
		headers:    []string{"Фолио", "Номер авто", "Часы"},
	}
	for _, detail := range settlement.Details {
		data.rows = append(data.rows, []interface{}{
			detail.Folio,
			detail.LicensePlate,
			detail.Hours.StringFixed(2),
		})
	}

	return data, nil
}

// ExportSettlementToExcel выгружает расчет в Excel
func (rs *ReportService) ExportSettlementToExcel(settlementID uint, w io.Writer) error {
	data, err := rs.loadSettlementExport(settlementID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Ошибка закрытия Excel файла: %v", err)
		}
	}()

	sheetName := "Расчет"
	f.SetSheetName("Sheet1", sheetName)

	// Шапка документа
	f.SetCellValue(sheetName, "A1", rs.settlementTitle(data.settlement))
	f.SetCellValue(sheetName, "A2", fmt.Sprintf("Период: %s - %s",
		data.settlement.PeriodStart.Format("02.01.2006"),
		data.settlement.PeriodEnd.Format("02.01.2006")))
	f.SetCellValue(sheetName, "A3", fmt.Sprintf("Итого часов: %s", data.settlement.TotalHours.StringFixed(2)))
	f.SetCellValue(sheetName, "B3", fmt.Sprintf("Итого к оплате: %s", data.settlement.TotalAmount.StringFixed(2)))
	f.SetCellValue(sheetName, "C3", fmt.Sprintf("Талонов: %d", data.settlement.TicketCount))

	// Заголовки таблицы
	headerRow := 5
	for i, header := range data.headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		f.SetCellValue(sheetName, cell, header)
	}

	// Строки детализации
	for rowIdx, row := range data.rows {
		for colIdx, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, headerRow+1+rowIdx)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	if data.settlement.Observations != "" {
		cell, _ := excelize.CoordinatesToCellName(1, headerRow+len(data.rows)+2)
		f.SetCellValue(sheetName, cell, "Примечания: "+data.settlement.Observations)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("ошибка записи Excel файла: %w", err)
	}
	return nil
}

// ExportSettlementToPDF выгружает расчет в PDF
func (rs *ReportService) ExportSettlementToPDF(settlementID uint, w io.Writer) error {
	data, err := rs.loadSettlementExport(settlementID)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(180, 10, rs.settlementTitle(data.settlement))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(180, 8, fmt.Sprintf("Период: %s - %s",
		data.settlement.PeriodStart.Format("02.01.2006"),
		data.settlement.PeriodEnd.Format("02.01.2006")))
	pdf.Ln(8)
	pdf.Cell(180, 8, fmt.Sprintf("Итого часов: %s  Итого к оплате: %s  Талонов: %d",
		data.settlement.TotalHours.StringFixed(2),
		data.settlement.TotalAmount.StringFixed(2),
		data.settlement.TicketCount))
	pdf.Ln(12)

	// Заголовки таблицы
	pdf.SetFont("Arial", "B", 9)
	for _, header := range data.headers {
		pdf.Cell(60, 8, header)
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 9)
	maxRows := 50
	for i, row := range data.rows {
		if i >= maxRows {
			pdf.Cell(180, 8, fmt.Sprintf("... и еще %d строк", len(data.rows)-maxRows))
			break
		}
		for _, value := range row {
			pdf.Cell(60, 7, fmt.Sprintf("%v", value))
		}
		pdf.Ln(7)
	}

	if data.settlement.Observations != "" {
		pdf.Ln(8)
		pdf.Cell(180, 8, "Примечания: "+data.settlement.Observations)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("ошибка записи PDF файла: %w", err)
	}
	return nil
}

// settlementTitle строит заголовок документа по данным расчета
func (rs *ReportService) settlementTitle(settlement *models.BusinessSettlementHistory) string {
	businessName := fmt.Sprintf("бизнес %d", settlement.BusinessID)
	if settlement.Business != nil {
		businessName = settlement.Business.Name
	}
	branchName := fmt.Sprintf("филиал %d", settlement.BranchID)
	if settlement.Branch != nil {
		branchName = settlement.Branch.Name
	}
	return fmt.Sprintf("Расчет по бесплатным часам: %s, %s", businessName, branchName)
}

// SuggestedSettlementFileName строит имя файла выгрузки
func SuggestedSettlementFileName(settlementID uint, format string) string {
	return fmt.Sprintf("settlement_%d_%s.%s", settlementID, time.Now().Format("20060102"), format)
}
