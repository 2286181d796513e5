package services

import (
	"bytes"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"backend_crb/models"
)

// ReportService agrega registros de serviço em relatórios de desempenho
// mensal por grupo de contrato
type ReportService struct {
	DB     *gorm.DB
	Logger *log.Logger
}

// NewReportService cria um novo serviço de relatórios
func NewReportService(db *gorm.DB, logger *log.Logger) *ReportService {
	return &ReportService{DB: db, Logger: logger}
}

// Cores dos conjuntos de dados do gráfico, na ordem dos grupos
var graphColors = []string{"#352f91", "#4a5568", "#28a745", "#dc3545", "#ffc107", "#17a2b8"}

// GraphDataset é um conjunto de dados no formato esperado pelo gráfico
// do frontend
type GraphDataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor string    `json:"backgroundColor"`
	BorderColor     string    `json:"borderColor"`
	BorderWidth     int       `json:"borderWidth"`
}

// GraphData agrupa rótulos mensais e conjuntos de dados por grupo
type GraphData struct {
	Labels   []string       `json:"labels"`
	Datasets []GraphDataset `json:"datasets"`
}

// PerformanceGraph agrega a área executada por mês e por grupo de contrato
// no intervalo informado. Só entram registros com medição positiva.
func (rs *ReportService) PerformanceGraph(startDate, endDate time.Time, groups []string) (*GraphData, error) {
	if len(groups) == 0 {
		return nil, NewValidationError("informe ao menos um grupo de contrato")
	}

	var records []models.Record
	err := rs.DB.
		Select("start_time", "contract_group", "location_area", "override_measurement").
		Where("contract_group IN ?", groups).
		Where("start_time >= ? AND start_time <= ?", startDate, endDate).
		Where("location_area > 0").
		Order("start_time ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	// Estrutura: mês "AAAA-MM" -> grupo -> área acumulada
	monthly := make(map[string]map[string]decimal.Decimal)
	for _, record := range records {
		month := record.StartTime.Format("2006-01")
		if monthly[month] == nil {
			monthly[month] = make(map[string]decimal.Decimal)
		}
		monthly[month][record.ContractGroup] =
			monthly[month][record.ContractGroup].Add(record.EffectiveMeasurement())
	}

	labels := make([]string, 0, len(monthly))
	for month := range monthly {
		labels = append(labels, month)
	}
	sort.Strings(labels)

	data := &GraphData{Labels: labels, Datasets: make([]GraphDataset, 0, len(groups))}
	for i, group := range groups {
		color := graphColors[i%len(graphColors)]
		dataset := GraphDataset{
			Label:           group,
			Data:            make([]float64, len(labels)),
			BackgroundColor: color + "80",
			BorderColor:     color,
			BorderWidth:     1,
		}
		for j, month := range labels {
			value, _ := monthly[month][group].Float64()
			dataset.Data[j] = value
		}
		data.Datasets = append(data.Datasets, dataset)
	}

	return data, nil
}

// MonthlySummaryRow é uma linha do resumo mensal por grupo e serviço
type MonthlySummaryRow struct {
	ContractGroup string          `json:"contractGroup"`
	ServiceType   string          `json:"serviceType"`
	RecordCount   int             `json:"recordCount"`
	TotalArea     decimal.Decimal `json:"totalArea"`
	TargetArea    decimal.Decimal `json:"targetArea"`
	CycleStart    time.Time       `json:"cycleStart"`
	CycleEnd      time.Time       `json:"cycleEnd"`
}

// MonthlySummary agrega os registros do ciclo mensal de cada grupo de
// contrato. O ciclo começa no CycleStartDay configurado para o grupo
// (dia 1 na ausência de configuração) e termina no dia anterior do mês
// seguinte.
func (rs *ReportService) MonthlySummary(month string) ([]MonthlySummaryRow, error) {
	monthStart, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, NewValidationError("mês inválido, use o formato AAAA-MM")
	}

	var configs []models.ContractConfig
	if err := rs.DB.Find(&configs).Error; err != nil {
		return nil, err
	}
	cycleStartDay := make(map[string]int, len(configs))
	for _, config := range configs {
		cycleStartDay[config.ContractGroup] = config.CycleStartDay
	}

	groups, err := NewContractGroupService(rs.DB, rs.Logger).ListNames()
	if err != nil {
		return nil, err
	}

	var goals []models.Goal
	if err := rs.DB.Where("month = ?", month).Find(&goals).Error; err != nil {
		return nil, err
	}

	var rows []MonthlySummaryRow
	for _, group := range groups {
		startDay := cycleStartDay[group]
		if startDay < 1 {
			startDay = 1
		}
		cycleStart := time.Date(monthStart.Year(), monthStart.Month(), startDay, 0, 0, 0, 0, time.UTC)
		cycleEnd := cycleStart.AddDate(0, 1, 0)

		var records []models.Record
		err := rs.DB.
			Where("contract_group = ?", group).
			Where("start_time >= ? AND start_time < ?", cycleStart, cycleEnd).
			Find(&records).Error
		if err != nil {
			return nil, err
		}

		byService := make(map[string]*MonthlySummaryRow)
		for _, record := range records {
			row, ok := byService[record.ServiceType]
			if !ok {
				row = &MonthlySummaryRow{
					ContractGroup: group,
					ServiceType:   record.ServiceType,
					CycleStart:    cycleStart,
					CycleEnd:      cycleEnd.AddDate(0, 0, -1),
				}
				byService[record.ServiceType] = row
			}
			row.RecordCount++
			row.TotalArea = row.TotalArea.Add(record.EffectiveMeasurement())
		}

		for _, goal := range goals {
			if goal.ContractGroup != group {
				continue
			}
			var service models.Service
			if err := rs.DB.First(&service, goal.ServiceID).Error; err != nil {
				continue
			}
			if row, ok := byService[service.Name]; ok {
				row.TargetArea = row.TargetArea.Add(goal.TargetArea)
			}
		}

		serviceNames := make([]string, 0, len(byService))
		for name := range byService {
			serviceNames = append(serviceNames, name)
		}
		sort.Strings(serviceNames)
		for _, name := range serviceNames {
			rows = append(rows, *byService[name])
		}
	}

	return rows, nil
}

var summaryHeaders = []string{"Grupo de Contrato", "Serviço", "Registros", "Área Executada", "Meta", "Início do Ciclo", "Fim do Ciclo"}

// ExportMonthlySummaryXLSX gera a planilha Excel do resumo mensal
func (rs *ReportService) ExportMonthlySummaryXLSX(month string) ([]byte, error) {
	rows, err := rs.MonthlySummary(month)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil && rs.Logger != nil {
			rs.Logger.Printf("Falha ao fechar arquivo Excel: %v", err)
		}
	}()

	sheetName := "Desempenho " + month
	f.SetSheetName("Sheet1", sheetName)

	for i, header := range summaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIdx, row := range rows {
		values := []interface{}{
			row.ContractGroup,
			row.ServiceType,
			row.RecordCount,
			row.TotalArea.InexactFloat64(),
			row.TargetArea.InexactFloat64(),
			row.CycleStart.Format("02/01/2006"),
			row.CycleEnd.Format("02/01/2006"),
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportMonthlySummaryPDF gera o PDF do resumo mensal
func (rs *ReportService) ExportMonthlySummaryPDF(month string) ([]byte, error) {
	rows, err := rs.MonthlySummary(month)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(120, 10, fmt.Sprintf("Relatorio de Desempenho - %s", month))
	pdf.Ln(14)

	widths := []float64{55, 50, 25, 35, 35, 35, 35}
	pdf.SetFont("Arial", "B", 9)
	for i, header := range summaryHeaders {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		values := []string{
			row.ContractGroup,
			row.ServiceType,
			fmt.Sprintf("%d", row.RecordCount),
			row.TotalArea.StringFixed(2),
			row.TargetArea.StringFixed(2),
			row.CycleStart.Format("02/01/2006"),
			row.CycleEnd.Format("02/01/2006"),
		}
		for i, value := range values {
			pdf.CellFormat(widths[i], 7, value, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
