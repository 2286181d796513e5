package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"backend_crb/models"
)

// ServiceAPI gerencia o catálogo de serviços
type ServiceAPI struct {
	DB *gorm.DB
}

// NewServiceAPI cria uma nova instância de ServiceAPI
func NewServiceAPI(db *gorm.DB) *ServiceAPI {
	return &ServiceAPI{DB: db}
}

// GetServices retorna todos os serviços com suas unidades
func (api *ServiceAPI) GetServices(c *gin.Context) {
	var serviceList []models.Service
	if err := api.DB.Preload("Unit").Order("name ASC").Find(&serviceList).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar serviços."})
		return
	}
	c.JSON(http.StatusOK, serviceList)
}

// ServiceRequest representa a criação/atualização de um serviço
type ServiceRequest struct {
	Name   string `json:"name" binding:"required"`
	UnitID uint   `json:"unitId" binding:"required"`
}

// CreateService cria um novo serviço
func (api *ServiceAPI) CreateService(c *gin.Context) {
	var req ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Nome e unidade são obrigatórios."})
		return
	}

	var unit models.Unit
	if err := api.DB.First(&unit, req.UnitID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Unidade de medida não encontrada."})
		return
	}

	service := models.Service{Name: strings.TrimSpace(req.Name), UnitID: req.UnitID}
	if err := api.DB.Create(&service).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "Já existe um serviço com esse nome."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao criar serviço."})
		return
	}

	api.DB.Preload("Unit").First(&service, service.ID)
	c.JSON(http.StatusCreated, service)
}

// UpdateService atualiza um serviço existente
func (api *ServiceAPI) UpdateService(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de serviço inválido."})
		return
	}

	var service models.Service
	if err := api.DB.First(&service, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Serviço não encontrado."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar serviço."})
		return
	}

	var req ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Nome e unidade são obrigatórios."})
		return
	}

	var unit models.Unit
	if err := api.DB.First(&unit, req.UnitID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Unidade de medida não encontrada."})
		return
	}

	updates := map[string]interface{}{
		"name":    strings.TrimSpace(req.Name),
		"unit_id": req.UnitID,
	}
	if err := api.DB.Model(&service).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "Já existe um serviço com esse nome."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao atualizar serviço."})
		return
	}

	api.DB.Preload("Unit").First(&service, service.ID)
	c.JSON(http.StatusOK, service)
}

// DeleteService remove um serviço do catálogo
func (api *ServiceAPI) DeleteService(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de serviço inválido."})
		return
	}

	var service models.Service
	if err := api.DB.First(&service, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Serviço não encontrado."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar serviço."})
		return
	}

	// Medições de locais que apontam para este serviço saem junto
	err = api.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("service_id = ?", service.ID).Delete(&models.LocationService{}).Error; err != nil {
			return err
		}
		return tx.Delete(&service).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao excluir serviço."})
		return
	}

	c.Status(http.StatusNoContent)
}
