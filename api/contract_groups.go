package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"backend_crb/middleware"
	"backend_crb/models"
	"backend_crb/services"
)

// ContractGroupAPI concentra as rotas de grupos de contrato: configurações
// de ciclo e as cascatas de renomeio/exclusão
type ContractGroupAPI struct {
	DB            *gorm.DB
	Groups        *services.ContractGroupService
	Audit         *services.AuditService
	Cache         *services.CacheService
	Notifications *services.NotificationService
}

// NewContractGroupAPI cria uma nova instância de ContractGroupAPI
func NewContractGroupAPI(db *gorm.DB, groups *services.ContractGroupService, audit *services.AuditService,
	cache *services.CacheService, notifications *services.NotificationService) *ContractGroupAPI {
	return &ContractGroupAPI{
		DB:            db,
		Groups:        groups,
		Audit:         audit,
		Cache:         cache,
		Notifications: notifications,
	}
}

// GetConfigs retorna todas as configurações de contrato
func (api *ContractGroupAPI) GetConfigs(c *gin.Context) {
	var configs []models.ContractConfig
	if err := api.DB.Find(&configs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar configurações de contrato."})
		return
	}
	c.JSON(http.StatusOK, configs)
}

type configInput struct {
	ContractGroup string `json:"contractGroup" binding:"required"`
	CycleStartDay int    `json:"cycleStartDay"`
}

type saveConfigsRequest struct {
	Configs []configInput `json:"configs" binding:"required"`
}

// SaveConfigs cria ou atualiza um lote de configurações em uma transação
func (api *ContractGroupAPI) SaveConfigs(c *gin.Context) {
	var req saveConfigsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Formato de dados inválido."})
		return
	}

	err := api.DB.Transaction(func(tx *gorm.DB) error {
		for _, input := range req.Configs {
			day := input.CycleStartDay
			if day < 1 || day > 28 {
				day = 1
			}

			var config models.ContractConfig
			err := tx.Where("contract_group = ?", input.ContractGroup).First(&config).Error
			switch {
			case err == nil:
				if err := tx.Model(&config).Update("cycle_start_day", day).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				config = models.ContractConfig{ContractGroup: input.ContractGroup, CycleStartDay: day}
				if err := tx.Create(&config).Error; err != nil {
					return err
				}
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao salvar configurações.", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Configurações salvas com sucesso."})
}

type renameRequest struct {
	NewName string `json:"newName"`
}

// RenameGroup renomeia um grupo de contrato em todas as formas de
// armazenamento (locais, configurações, registros e vínculos de usuários)
func (api *ContractGroupAPI) RenameGroup(c *gin.Context) {
	oldName := decodeNameParam(c.Param("name"))

	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "O novo nome do contrato é obrigatório."})
		return
	}

	result, err := api.Groups.Rename(oldName, req.NewName)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao renomear o grupo de contrato.", "error": err.Error()})
		return
	}

	api.Cache.InvalidateLocations()

	if admin := middleware.GetCurrentUser(c); admin != nil {
		details := fmt.Sprintf("Grupo de contrato '%s' renomeado para '%s' (%d locais, %d registros, %d usuários)",
			result.OldName, result.NewName, result.LocationsUpdated, result.RecordsUpdated, result.UsersUpdated)
		api.Audit.Log(admin, models.AuditActionGroupRename, nil, details)
	}

	c.JSON(http.StatusOK, gin.H{"message": result.Message, "data": result})
}

type deleteGroupRequest struct {
	Password string `json:"password"`
}

// DeleteGroup exclui um grupo de contrato e seus locais, mediante
// reautenticação do administrador. Registros de serviço existentes
// bloqueiam a operação.
func (api *ContractGroupAPI) DeleteGroup(c *gin.Context) {
	name := decodeNameParam(c.Param("name"))

	var req deleteGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Senha administrativa é obrigatória."})
		return
	}

	admin := middleware.GetCurrentUser(c)
	if admin == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Não autorizado."})
		return
	}

	result, err := api.Groups.Delete(admin.ID, name, req.Password)
	if err != nil {
		var conflict *services.ConflictError
		switch {
		case errors.Is(err, services.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		case errors.Is(err, services.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Senha incorreta."})
		case errors.As(err, &conflict):
			c.JSON(http.StatusConflict, gin.H{"message": conflict.Message, "recordCount": conflict.Count})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao excluir o grupo de contrato.", "error": err.Error()})
		}
		return
	}

	api.Cache.InvalidateLocations()

	details := fmt.Sprintf("Grupo de contrato '%s' excluído (%d locais, %d configurações, %d usuários atualizados)",
		result.Name, result.LocationsDeleted, result.ConfigsDeleted, result.UsersUpdated)
	api.Audit.Log(admin, models.AuditActionGroupDelete, nil, details)
	api.Notifications.NotifyGroupDeleted(admin.Name, result)

	c.JSON(http.StatusOK, gin.H{"message": result.Message, "data": result})
}

// GetGroupNames retorna os rótulos de grupo conhecidos
func (api *ContractGroupAPI) GetGroupNames(c *gin.Context) {
	names, err := api.Groups.ListNames()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar grupos de contrato."})
		return
	}
	c.JSON(http.StatusOK, names)
}

// decodeNameParam decodifica o nome vindo da URL (nomes de grupo podem
// conter espaços e acentos)
func decodeNameParam(raw string) string {
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
