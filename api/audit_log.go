package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"backend_crb/middleware"
	"backend_crb/services"
)

// AuditLogAPI expõe o log de auditoria para administradores
type AuditLogAPI struct {
	Audit *services.AuditService
}

// NewAuditLogAPI cria uma nova instância de AuditLogAPI
func NewAuditLogAPI(audit *services.AuditService) *AuditLogAPI {
	return &AuditLogAPI{Audit: audit}
}

// GetAuditLogs retorna as entradas de auditoria, mais recentes primeiro
func (api *AuditLogAPI) GetAuditLogs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Parâmetro 'limit' inválido."})
			return
		}
		limit = parsed
	}

	logs, err := api.Audit.List(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar log de auditoria."})
		return
	}
	c.JSON(http.StatusOK, logs)
}

// AuditEntryRequest representa uma entrada manual de auditoria
type AuditEntryRequest struct {
	Action   string `json:"action" binding:"required"`
	RecordID *uint  `json:"recordId"`
	Details  string `json:"details"`
}

// CreateAuditLog grava uma entrada manual em nome do administrador
// autenticado
func (api *AuditLogAPI) CreateAuditLog(c *gin.Context) {
	admin := middleware.GetCurrentUser(c)
	if admin == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Não autenticado."})
		return
	}

	var req AuditEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "O campo 'action' é obrigatório."})
		return
	}

	if err := api.Audit.Log(admin, req.Action, req.RecordID, req.Details); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao gravar entrada de auditoria."})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Entrada de auditoria registrada."})
}
