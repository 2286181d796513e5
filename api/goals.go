package api

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"backend_crb/models"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// GoalAPI gerencia as metas mensais por grupo de contrato
type GoalAPI struct {
	DB *gorm.DB
}

// NewGoalAPI cria uma nova instância de GoalAPI
func NewGoalAPI(db *gorm.DB) *GoalAPI {
	return &GoalAPI{DB: db}
}

// GetGoals retorna as metas, opcionalmente filtradas por mês e grupo
func (api *GoalAPI) GetGoals(c *gin.Context) {
	query := api.DB.Preload("Service").Preload("Service.Unit")
	if month := c.Query("month"); month != "" {
		query = query.Where("month = ?", month)
	}
	if group := c.Query("contractGroup"); group != "" {
		query = query.Where("contract_group = ?", group)
	}

	var goals []models.Goal
	if err := query.Order("contract_group ASC, month ASC").Find(&goals).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar metas."})
		return
	}
	c.JSON(http.StatusOK, goals)
}

// GoalRequest representa a criação/atualização de uma meta
type GoalRequest struct {
	ContractGroup string          `json:"contractGroup" binding:"required"`
	Month         string          `json:"month" binding:"required"`
	TargetArea    decimal.Decimal `json:"targetArea"`
	ServiceID     uint            `json:"serviceId" binding:"required"`
}

// SaveGoal cria ou atualiza a meta do trio grupo+mês+serviço
func (api *GoalAPI) SaveGoal(c *gin.Context) {
	var req GoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Grupo, mês e serviço são obrigatórios."})
		return
	}
	if !monthPattern.MatchString(req.Month) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Mês inválido. Use o formato AAAA-MM."})
		return
	}

	var service models.Service
	if err := api.DB.First(&service, req.ServiceID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Serviço não encontrado."})
		return
	}

	group := strings.TrimSpace(req.ContractGroup)

	var goal models.Goal
	err := api.DB.Where("contract_group = ? AND month = ? AND service_id = ?",
		group, req.Month, req.ServiceID).First(&goal).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		goal = models.Goal{
			ContractGroup: group,
			Month:         req.Month,
			TargetArea:    req.TargetArea,
			ServiceID:     req.ServiceID,
		}
		if err := api.DB.Create(&goal).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao salvar meta."})
			return
		}
		c.JSON(http.StatusCreated, goal)
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar meta."})
	default:
		if err := api.DB.Model(&goal).Update("target_area", req.TargetArea).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao salvar meta."})
			return
		}
		c.JSON(http.StatusOK, goal)
	}
}

type updateGoalRequest struct {
	TargetArea decimal.Decimal `json:"targetArea"`
}

// UpdateGoal atualiza a área-alvo de uma meta existente
func (api *GoalAPI) UpdateGoal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de meta inválido."})
		return
	}

	var goal models.Goal
	if err := api.DB.First(&goal, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Meta não encontrada."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar meta."})
		return
	}

	var req updateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Área-alvo inválida."})
		return
	}

	if err := api.DB.Model(&goal).Update("target_area", req.TargetArea).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao atualizar meta."})
		return
	}
	goal.TargetArea = req.TargetArea
	c.JSON(http.StatusOK, goal)
}

// DeleteGoal remove uma meta
func (api *GoalAPI) DeleteGoal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de meta inválido."})
		return
	}

	result := api.DB.Delete(&models.Goal{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao excluir meta."})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Meta não encontrada."})
		return
	}
	c.Status(http.StatusNoContent)
}
