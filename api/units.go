package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"backend_crb/models"
)

// UnitAPI gerencia as unidades de medida
type UnitAPI struct {
	DB *gorm.DB
}

// NewUnitAPI cria uma nova instância de UnitAPI
func NewUnitAPI(db *gorm.DB) *UnitAPI {
	return &UnitAPI{DB: db}
}

// GetUnits retorna todas as unidades de medida
func (api *UnitAPI) GetUnits(c *gin.Context) {
	var units []models.Unit
	if err := api.DB.Order("name ASC").Find(&units).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar unidades."})
		return
	}
	c.JSON(http.StatusOK, units)
}

// UnitRequest representa a criação/atualização de uma unidade
type UnitRequest struct {
	Name   string `json:"name" binding:"required"`
	Symbol string `json:"symbol" binding:"required"`
}

// CreateUnit cria uma nova unidade de medida
func (api *UnitAPI) CreateUnit(c *gin.Context) {
	var req UnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Nome e símbolo são obrigatórios."})
		return
	}

	unit := models.Unit{Name: strings.TrimSpace(req.Name), Symbol: strings.TrimSpace(req.Symbol)}
	if err := api.DB.Create(&unit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao criar unidade."})
		return
	}
	c.JSON(http.StatusCreated, unit)
}

// UpdateUnit atualiza uma unidade de medida
func (api *UnitAPI) UpdateUnit(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de unidade inválido."})
		return
	}

	var unit models.Unit
	if err := api.DB.First(&unit, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Unidade não encontrada."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar unidade."})
		return
	}

	var req UnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Nome e símbolo são obrigatórios."})
		return
	}

	updates := map[string]interface{}{
		"name":   strings.TrimSpace(req.Name),
		"symbol": strings.TrimSpace(req.Symbol),
	}
	if err := api.DB.Model(&unit).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao atualizar unidade."})
		return
	}
	c.JSON(http.StatusOK, unit)
}

// DeleteUnit remove uma unidade de medida, desde que nenhum serviço a
// referencie
func (api *UnitAPI) DeleteUnit(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de unidade inválido."})
		return
	}

	var unit models.Unit
	if err := api.DB.First(&unit, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Unidade não encontrada."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar unidade."})
		return
	}

	var inUse int64
	if err := api.DB.Model(&models.Service{}).Where("unit_id = ?", unit.ID).Count(&inUse).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao verificar serviços."})
		return
	}
	if inUse > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"message":      fmt.Sprintf("A unidade '%s' está em uso por %d serviço(s) e não pode ser excluída.", unit.Name, inUse),
			"serviceCount": inUse,
		})
		return
	}

	if err := api.DB.Delete(&unit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao excluir unidade."})
		return
	}
	c.Status(http.StatusNoContent)
}
