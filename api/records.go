package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"backend_crb/middleware"
	"backend_crb/models"
	"backend_crb/services"
)

// RecordAPI concentra o ciclo de vida dos registros de serviço
type RecordAPI struct {
	DB         *gorm.DB
	Audit      *services.AuditService
	Cache      *services.CacheService
	UploadsDir string
	Logger     *log.Logger
}

// NewRecordAPI cria uma nova instância de RecordAPI
func NewRecordAPI(db *gorm.DB, audit *services.AuditService, cache *services.CacheService, uploadsDir string, logger *log.Logger) *RecordAPI {
	return &RecordAPI{DB: db, Audit: audit, Cache: cache, UploadsDir: uploadsDir, Logger: logger}
}

// RecordView é a visão externa de um registro, com as observações do
// local juntadas e o nome do operador com fallback
type RecordView struct {
	models.Record
	OperatorName string `json:"operatorName"`
	Observations string `json:"observations"`
}

func toRecordView(record models.Record) RecordView {
	view := RecordView{Record: record, OperatorName: record.OperatorName}
	if view.OperatorName == "" {
		view.OperatorName = "Operador Deletado"
	}
	if record.Location != nil {
		view.Observations = record.Location.Observations
	}
	return view
}

// GetRecords retorna todos os registros, dos mais recentes para os mais
// antigos
func (api *RecordAPI) GetRecords(c *gin.Context) {
	var records []models.Record
	err := api.DB.Preload("Location").Order("start_time DESC").Find(&records).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar registros."})
		return
	}

	views := make([]RecordView, 0, len(records))
	for _, record := range records {
		views = append(views, toRecordView(record))
	}
	c.JSON(http.StatusOK, views)
}

// GetRecord retorna um registro específico
func (api *RecordAPI) GetRecord(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de registro inválido."})
		return
	}

	var record models.Record
	if err := api.DB.Preload("Location").First(&record, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Registro não encontrado."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar registro."})
		return
	}

	c.JSON(http.StatusOK, toRecordView(record))
}

// NewLocationInfo descreve um local criado junto com o registro
type NewLocationInfo struct {
	City         string                 `json:"city"`
	Name         string                 `json:"name"`
	Lat          *float64               `json:"lat"`
	Lng          *float64               `json:"lng"`
	Observations string                 `json:"observations"`
	Services     []LocationServiceInput `json:"services"`
}

// CreateRecordRequest representa a criação de um registro de serviço
type CreateRecordRequest struct {
	OperatorID      uint             `json:"operatorId" binding:"required"`
	ServiceID       uint             `json:"serviceId" binding:"required"`
	ServiceType     string           `json:"serviceType"`
	ServiceUnit     string           `json:"serviceUnit"`
	ContractGroup   string           `json:"contractGroup"`
	LocationID      *uint            `json:"locationId"`
	LocationName    string           `json:"locationName"`
	LocationArea    decimal.Decimal  `json:"locationArea"`
	GPSUsed         bool             `json:"gpsUsed"`
	StartTime       time.Time        `json:"startTime"`
	NewLocationInfo *NewLocationInfo `json:"newLocationInfo"`
}

// CreateRecord cria um registro de serviço. Se newLocationInfo for
// enviado, o local é criado primeiro; um locationId enviado diretamente
// precisa existir antes do commit, para nunca criar referência solta.
func (api *RecordAPI) CreateRecord(c *gin.Context) {
	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Os campos 'serviceId' e 'operatorId' são obrigatórios."})
		return
	}

	// Garante que o operador existe e copia o nome para o registro
	var operator models.User
	if err := api.DB.First(&operator, req.OperatorID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Operador não encontrado."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar operador."})
		return
	}

	var service models.Service
	if err := api.DB.First(&service, req.ServiceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Serviço não encontrado."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar serviço."})
		return
	}

	var record models.Record
	err := api.DB.Transaction(func(tx *gorm.DB) error {
		finalLocationID := req.LocationID

		// Criação inline do local, com suas medições
		if req.NewLocationInfo != nil && req.NewLocationInfo.Name != "" {
			newLocation := models.Location{
				City:         req.NewLocationInfo.City,
				Name:         req.NewLocationInfo.Name,
				Lat:          req.NewLocationInfo.Lat,
				Lng:          req.NewLocationInfo.Lng,
				Observations: req.NewLocationInfo.Observations,
			}
			for _, s := range req.NewLocationInfo.Services {
				newLocation.Services = append(newLocation.Services, models.LocationService{
					ServiceID:   s.ServiceID,
					Measurement: s.Measurement,
				})
			}
			if err := tx.Create(&newLocation).Error; err != nil {
				return err
			}
			finalLocationID = &newLocation.ID
		} else if finalLocationID != nil {
			var exists models.Location
			if err := tx.First(&exists, *finalLocationID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return services.NewNotFoundError("o local com ID %d não foi encontrado", *finalLocationID)
				}
				return err
			}
		}

		record = models.Record{
			OperatorID:    &operator.ID,
			OperatorName:  operator.Name,
			ServiceID:     service.ID,
			ServiceType:   req.ServiceType,
			ServiceUnit:   req.ServiceUnit,
			ContractGroup: req.ContractGroup,
			LocationID:    finalLocationID,
			LocationName:  req.LocationName,
			LocationArea:  req.LocationArea,
			GPSUsed:       req.GPSUsed,
			StartTime:     req.StartTime,
			BeforePhotos:  models.PhotoList{},
			AfterPhotos:   models.PhotoList{},
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno ao criar registro.", "error": err.Error()})
		return
	}

	if req.NewLocationInfo != nil {
		api.Cache.InvalidateLocations()
	}
	c.JSON(http.StatusCreated, record)
}

// UploadPhotos anexa fotos a um registro na fase BEFORE ou AFTER. Os
// caminhos são sempre acrescentados ao final da sequência; a fase AFTER
// também carimba o fim do trabalho.
func (api *RecordAPI) UploadPhotos(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de registro inválido."})
		return
	}

	phase := c.PostForm("phase")
	if phase != models.PhotoPhaseBefore && phase != models.PhotoPhaseAfter {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dados inválidos para upload de fotos."})
		return
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dados inválidos para upload de fotos."})
		return
	}

	// Persiste os arquivos antes de tocar no banco
	var photoPaths []string
	for _, fileHeader := range form.File["files"] {
		filename := fmt.Sprintf("%s-%s%s", strings.ToLower(phase), uuid.NewString(), filepath.Ext(fileHeader.Filename))
		dst := filepath.Join(api.UploadsDir, filename)
		if err := c.SaveUploadedFile(fileHeader, dst); err != nil {
			api.removeFiles(photoPaths)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro no upload de fotos."})
			return
		}
		photoPaths = append(photoPaths, "/uploads/"+filename)
	}

	var record models.Record
	if err := api.DB.First(&record, id).Error; err != nil {
		// Arquivos já gravados para um registro inexistente são removidos
		api.removeFiles(photoPaths)
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Registro não encontrado para associar fotos."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro no upload de fotos."})
		return
	}

	updates := make(map[string]interface{})
	if phase == models.PhotoPhaseBefore {
		updates["before_photos"] = append(record.BeforePhotos, photoPaths...)
	} else {
		updates["after_photos"] = append(record.AfterPhotos, photoPaths...)
		updates["end_time"] = time.Now()
	}

	if err := api.DB.Model(&record).Updates(updates).Error; err != nil {
		api.removeFiles(photoPaths)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro no upload de fotos."})
		return
	}

	if err := api.DB.First(&record, id).Error; err == nil {
		c.JSON(http.StatusOK, record)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fotos anexadas com sucesso."})
}

// UpdateRecordRequest representa a atualização administrativa de um
// registro
type UpdateRecordRequest struct {
	ServiceType   *string          `json:"serviceType"`
	ServiceUnit   *string          `json:"serviceUnit"`
	ContractGroup *string          `json:"contractGroup"`
	LocationName  *string          `json:"locationName"`
	LocationArea  *decimal.Decimal `json:"locationArea"`
	GPSUsed       *bool            `json:"gpsUsed"`
	StartTime     *time.Time       `json:"startTime"`
	EndTime       *time.Time       `json:"endTime"`
}

// UpdateRecord atualiza os campos básicos de um registro (admin). As
// sequências de fotos só mudam pelo anexo ou pela exclusão do registro.
func (api *RecordAPI) UpdateRecord(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de registro inválido."})
		return
	}

	var record models.Record
	if err := api.DB.First(&record, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Registro não encontrado."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar registro."})
		return
	}

	var req UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dados inválidos: " + err.Error()})
		return
	}

	updates := make(map[string]interface{})
	if req.ServiceType != nil {
		updates["service_type"] = *req.ServiceType
	}
	if req.ServiceUnit != nil {
		updates["service_unit"] = *req.ServiceUnit
	}
	if req.ContractGroup != nil {
		updates["contract_group"] = *req.ContractGroup
	}
	if req.LocationName != nil {
		updates["location_name"] = *req.LocationName
	}
	if req.LocationArea != nil {
		updates["location_area"] = *req.LocationArea
	}
	if req.GPSUsed != nil {
		updates["gps_used"] = *req.GPSUsed
	}
	if req.StartTime != nil {
		updates["start_time"] = *req.StartTime
	}
	if req.EndTime != nil {
		updates["end_time"] = *req.EndTime
	}

	if len(updates) > 0 {
		if err := api.DB.Model(&record).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao atualizar registro."})
			return
		}

		if admin := middleware.GetCurrentUser(c); admin != nil {
			recordID := record.ID
			api.Audit.Log(admin, models.AuditActionRecordUpdate, &recordID,
				fmt.Sprintf("Registro %d atualizado", record.ID))
		}
	}

	c.JSON(http.StatusOK, record)
}

type overrideMeasurementRequest struct {
	// RawMessage distingue campo ausente de null explícito: null limpa o
	// ajuste, ausência é rejeitada
	OverrideMeasurement json.RawMessage `json:"overrideMeasurement"`
}

// OverrideMeasurement define ou limpa a medição ajustada de um registro,
// registrando na auditoria os valores efetivos antes e depois
func (api *RecordAPI) OverrideMeasurement(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de registro inválido."})
		return
	}

	var record models.Record
	if err := api.DB.First(&record, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Registro não encontrado."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar registro."})
		return
	}

	var req overrideMeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Medição ajustada é obrigatória."})
		return
	}
	if req.OverrideMeasurement == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Medição ajustada é obrigatória."})
		return
	}

	oldEffective := record.EffectiveMeasurement()

	var newValue *decimal.Decimal
	if string(req.OverrideMeasurement) != "null" {
		var value decimal.Decimal
		if err := json.Unmarshal(req.OverrideMeasurement, &value); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Medição ajustada inválida."})
			return
		}
		newValue = &value
	}

	if err := api.DB.Model(&record).Update("override_measurement", newValue).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao atualizar a medição."})
		return
	}
	record.OverrideMeasurement = newValue

	if admin := middleware.GetCurrentUser(c); admin != nil {
		recordID := record.ID
		details := fmt.Sprintf("Medição do registro %d ajustada de %s para %s",
			record.ID, oldEffective.StringFixed(2), record.EffectiveMeasurement().StringFixed(2))
		api.Audit.Log(admin, models.AuditActionMeasurementOverride, &recordID, details)
	}

	c.JSON(http.StatusOK, record)
}

// DeleteRecord remove um registro e seus artefatos de foto. A remoção
// dos arquivos é best-effort: falha individual é registrada mas não
// impede a exclusão do registro.
func (api *RecordAPI) DeleteRecord(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de registro inválido."})
		return
	}

	var record models.Record
	if err := api.DB.First(&record, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Registro não encontrado."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar registro."})
		return
	}

	allPhotos := append(append(models.PhotoList{}, record.BeforePhotos...), record.AfterPhotos...)
	api.removeFiles(allPhotos)

	if err := api.DB.Delete(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao excluir registro."})
		return
	}

	if admin := middleware.GetCurrentUser(c); admin != nil {
		recordID := record.ID
		details := fmt.Sprintf("Registro %d (%s em %s) excluído com %d fotos",
			record.ID, record.ServiceType, record.LocationName, len(allPhotos))
		api.Audit.Log(admin, models.AuditActionRecordDelete, &recordID, details)
	}

	c.Status(http.StatusNoContent)
}

// removeFiles apaga arquivos de foto do disco, registrando falhas sem
// interromper a operação principal
func (api *RecordAPI) removeFiles(photoPaths []string) {
	for _, photoPath := range photoPaths {
		filename := strings.TrimPrefix(photoPath, "/uploads/")
		fullPath := filepath.Join(api.UploadsDir, filepath.Base(filename))
		if err := os.Remove(fullPath); err != nil && api.Logger != nil {
			api.Logger.Printf("Falha ao deletar arquivo %s: %v", photoPath, err)
		}
	}
}
