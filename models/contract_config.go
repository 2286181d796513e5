package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractConfig guarda a configuração de ciclo de um grupo de contrato.
// O rótulo ContractGroup é texto livre, duplicado também em Location.City,
// Record.ContractGroup e nos vínculos embutidos dos usuários.
type ContractConfig struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ContractGroup string `json:"contractGroup" gorm:"uniqueIndex;not null"`
	CycleStartDay int    `json:"cycleStartDay" gorm:"default:1"`
}

// TableName define o nome da tabela para o modelo ContractConfig
func (ContractConfig) TableName() string {
	return "contract_configs"
}

// Goal representa uma meta mensal de área por grupo de contrato e serviço
type Goal struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ContractGroup string          `json:"contractGroup" gorm:"index"`
	Month         string          `json:"month" gorm:"index"` // formato "AAAA-MM"
	TargetArea    decimal.Decimal `json:"targetArea" gorm:"type:decimal(14,2)"`
	ServiceID     uint            `json:"serviceId" gorm:"not null"`
	Service       *Service        `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

// TableName define o nome da tabela para o modelo Goal
func (Goal) TableName() string {
	return "goals"
}
