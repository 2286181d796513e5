package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"backend_crb/services"
)

// ReportAPI expõe os relatórios de desempenho
type ReportAPI struct {
	Reports *services.ReportService
}

// NewReportAPI cria uma nova instância de ReportAPI
func NewReportAPI(reports *services.ReportService) *ReportAPI {
	return &ReportAPI{Reports: reports}
}

// GetPerformanceGraph retorna a área executada por mês e grupo de
// contrato, no formato consumido pelo gráfico do frontend
func (api *ReportAPI) GetPerformanceGraph(c *gin.Context) {
	startDate, err := time.Parse("2006-01-02", c.Query("startDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Parâmetro 'startDate' inválido. Use o formato AAAA-MM-DD."})
		return
	}
	endDate, err := time.Parse("2006-01-02", c.Query("endDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Parâmetro 'endDate' inválido. Use o formato AAAA-MM-DD."})
		return
	}
	// Inclui o dia final inteiro
	endDate = endDate.Add(24*time.Hour - time.Nanosecond)

	var groups []string
	for _, group := range strings.Split(c.Query("contractGroups"), ",") {
		if trimmed := strings.TrimSpace(group); trimmed != "" {
			groups = append(groups, trimmed)
		}
	}

	data, err := api.Reports.PerformanceGraph(startDate, endDate, groups)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao gerar dados do gráfico."})
		return
	}
	c.JSON(http.StatusOK, data)
}

// GetMonthlySummary retorna o resumo do ciclo mensal em JSON
func (api *ReportAPI) GetMonthlySummary(c *gin.Context) {
	month := c.Query("month")
	rows, err := api.Reports.MonthlySummary(month)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao gerar resumo mensal."})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ExportMonthlySummary baixa o resumo mensal em XLSX ou PDF, conforme o
// parâmetro 'format'
func (api *ReportAPI) ExportMonthlySummary(c *gin.Context) {
	month := c.Query("month")
	format := strings.ToLower(c.DefaultQuery("format", "xlsx"))

	var (
		content     []byte
		contentType string
		filename    string
		err         error
	)
	switch format {
	case "xlsx":
		content, err = api.Reports.ExportMonthlySummaryXLSX(month)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = fmt.Sprintf("desempenho-%s.xlsx", month)
	case "pdf":
		content, err = api.Reports.ExportMonthlySummaryPDF(month)
		contentType = "application/pdf"
		filename = fmt.Sprintf("desempenho-%s.pdf", month)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Formato inválido. Use 'xlsx' ou 'pdf'."})
		return
	}
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao exportar resumo mensal."})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, content)
}
