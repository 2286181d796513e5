package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Fases de foto de um registro de serviço
const (
	PhotoPhaseBefore = "BEFORE"
	PhotoPhaseAfter  = "AFTER"
)

// PhotoList é uma sequência ordenada de caminhos de arquivo, armazenada
// como jsonb. Anexos são sempre acrescentados ao final, nunca sobrescritos.
type PhotoList []string

// Value serializa a lista para armazenamento
func (p PhotoList) Value() (driver.Value, error) {
	if p == nil {
		p = PhotoList{}
	}
	return json.Marshal(p)
}

// Scan desserializa a lista vinda do banco
func (p *PhotoList) Scan(value interface{}) error {
	if value == nil {
		*p = PhotoList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("tipo inesperado para PhotoList: %T", value)
	}
}

// Record representa um registro de serviço executado em campo.
// Vários campos são cópias desnormalizadas para que o registro continue
// legível mesmo após a remoção do operador ou do local.
type Record struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OperatorID   *uint  `json:"operatorId" gorm:"index"`
	OperatorName string `json:"operatorName"`
	Operator     *User  `json:"-" gorm:"foreignKey:OperatorID;constraint:OnDelete:SET NULL"`

	ServiceID   uint   `json:"serviceId" gorm:"not null"`
	ServiceType string `json:"serviceType"`
	ServiceUnit string `json:"serviceUnit"`

	// Cópia desnormalizada do rótulo do grupo de contrato, mutável
	// independentemente de Location.City
	ContractGroup string `json:"contractGroup" gorm:"index"`

	LocationID   *uint     `json:"locationId" gorm:"index"`
	Location     *Location `json:"-" gorm:"foreignKey:LocationID;constraint:OnDelete:SET NULL"`
	LocationName string    `json:"locationName"`

	LocationArea        decimal.Decimal  `json:"locationArea" gorm:"type:decimal(14,2)"`
	OverrideMeasurement *decimal.Decimal `json:"overrideMeasurement" gorm:"type:decimal(14,2)"`

	GPSUsed   bool       `json:"gpsUsed" gorm:"default:false"`
	StartTime time.Time  `json:"startTime" gorm:"index"`
	EndTime   *time.Time `json:"endTime"`

	BeforePhotos PhotoList `json:"beforePhotos" gorm:"type:jsonb"`
	AfterPhotos  PhotoList `json:"afterPhotos" gorm:"type:jsonb"`
}

// TableName define o nome da tabela para o modelo Record
func (Record) TableName() string {
	return "records"
}

// EffectiveMeasurement retorna a medição ajustada quando presente,
// senão a área original do local
func (r *Record) EffectiveMeasurement() decimal.Decimal {
	if r.OverrideMeasurement != nil {
		return *r.OverrideMeasurement
	}
	return r.LocationArea
}
