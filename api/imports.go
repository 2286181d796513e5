package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"backend_crb/middleware"
	"backend_crb/models"
	"backend_crb/services"
)

// ImportAPI concentra a importação em massa da árvore de locais
type ImportAPI struct {
	DB     *gorm.DB
	Import *services.LocationImportService
	Cache  *services.CacheService
	Audit  *services.AuditService
}

// NewImportAPI cria uma nova instância de ImportAPI
func NewImportAPI(db *gorm.DB, importSvc *services.LocationImportService, cache *services.CacheService, audit *services.AuditService) *ImportAPI {
	return &ImportAPI{DB: db, Import: importSvc, Cache: cache, Audit: audit}
}

// ImportLocations recebe uma planilha (CSV ou XLSX) e recria a árvore de
// locais em duas passadas. A importação é destrutiva.
func (api *ImportAPI) ImportLocations(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Arquivo de importação é obrigatório."})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Não foi possível abrir o arquivo."})
		return
	}
	defer file.Close()

	var rows []services.ImportRow
	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".csv":
		rows, err = api.Import.ParseCSV(file)
	case ".xlsx":
		rows, err = api.Import.ParseXLSX(file)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Formato não suportado, envie um arquivo .csv ou .xlsx."})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	result, err := api.Import.Import(rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao importar locais: " + err.Error()})
		return
	}

	api.Cache.InvalidateLocations()

	if admin := middleware.GetCurrentUser(c); admin != nil {
		details := fmt.Sprintf("Importação de locais: %d bairros, %d ruas, %d avisos (arquivo %s)",
			result.GroupsCreated, result.MembersCreated, len(result.Warnings), fileHeader.Filename)
		api.Audit.Log(admin, models.AuditActionLocationImport, nil, details)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Importação concluída com sucesso.",
		"data":    result,
	})
}
