package models

import "time"

// Unit representa uma unidade de medida (ex.: m², m linear).
// Não pode ser removida enquanto algum serviço a referenciar.
type Unit struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name   string `json:"name" gorm:"not null"`
	Symbol string `json:"symbol" gorm:"not null"`
}

// TableName define o nome da tabela para o modelo Unit
func (Unit) TableName() string {
	return "units"
}

// Service representa um tipo de serviço prestado (ex.: roçada, varrição)
type Service struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name   string `json:"name" gorm:"uniqueIndex;not null"`
	UnitID uint   `json:"unitId" gorm:"not null"`
	Unit   *Unit  `json:"unit,omitempty" gorm:"foreignKey:UnitID"`
}

// TableName define o nome da tabela para o modelo Service
func (Service) TableName() string {
	return "services"
}
