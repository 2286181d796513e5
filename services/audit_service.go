package services

import (
	"log"
	"time"

	"gorm.io/gorm"

	"backend_crb/models"
)

// AuditService grava entradas imutáveis no log de auditoria
type AuditService struct {
	DB     *gorm.DB
	Logger *log.Logger
}

// NewAuditService cria um novo serviço de auditoria
func NewAuditService(db *gorm.DB, logger *log.Logger) *AuditService {
	return &AuditService{DB: db, Logger: logger}
}

// Log registra uma ação administrativa. Falha na gravação é registrada no
// log da aplicação mas não interrompe a operação principal.
func (as *AuditService) Log(admin *models.User, action string, recordID *uint, details string) error {
	entry := &models.AuditLog{
		AdminID:       admin.ID,
		AdminUsername: admin.Name,
		Action:        action,
		RecordID:      recordID,
		Details:       details,
	}

	if err := as.DB.Create(entry).Error; err != nil {
		if as.Logger != nil {
			as.Logger.Printf("Falha ao gravar entrada de auditoria: %v", err)
		}
		return err
	}
	return nil
}

// LogTx grava a entrada dentro de uma transação já aberta, para ações cujo
// registro de auditoria deve ser desfeito junto com a operação.
func (as *AuditService) LogTx(tx *gorm.DB, admin *models.User, action string, recordID *uint, details string) error {
	entry := &models.AuditLog{
		AdminID:       admin.ID,
		AdminUsername: admin.Name,
		Action:        action,
		RecordID:      recordID,
		Details:       details,
	}
	return tx.Create(entry).Error
}

// List retorna as entradas mais recentes primeiro
func (as *AuditService) List(limit int) ([]models.AuditLog, error) {
	query := as.DB.Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// CleanupOldLogs remove entradas mais antigas que o período de retenção
func (as *AuditService) CleanupOldLogs(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := as.DB.Where("timestamp < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, result.Error
	}

	if as.Logger != nil && result.RowsAffected > 0 {
		as.Logger.Printf("Limpeza de auditoria: %d entradas com mais de %d dias removidas",
			result.RowsAffected, retentionDays)
	}
	return result.RowsAffected, nil
}
