package models

import "time"

// Ações registradas no log de auditoria
const (
	AuditActionRecordDelete        = "record.delete"
	AuditActionRecordUpdate        = "record.update"
	AuditActionMeasurementOverride = "record.measurement_override"
	AuditActionGroupRename         = "contract_group.rename"
	AuditActionGroupDelete         = "contract_group.delete"
	AuditActionLocationImport      = "location.import"
)

// AuditLog é uma entrada imutável do log de auditoria. O nome do
// administrador é desnormalizado para sobreviver à remoção da conta.
type AuditLog struct {
	ID uint `json:"id" gorm:"primarykey"`

	AdminID       uint   `json:"adminId" gorm:"index"`
	AdminUsername string `json:"adminUsername"`
	Action        string `json:"action" gorm:"index;not null"`
	RecordID      *uint  `json:"recordId" gorm:"index"`
	Details       string `json:"details" gorm:"type:text"`

	Timestamp time.Time `json:"timestamp" gorm:"autoCreateTime;index"`
}

// TableName define o nome da tabela para o modelo AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}
