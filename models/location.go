package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location representa um local de serviço. A hierarquia tem dois níveis:
// grupos (bairros, IsGroup=true, sem pai) e membros (ruas, IsGroup=false,
// ParentID apontando para o grupo da mesma cidade).
type Location struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// City é o rótulo do grupo de contrato (texto livre, não chave estrangeira)
	City         string   `json:"city" gorm:"index;not null"`
	Name         string   `json:"name" gorm:"not null"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	Observations string   `json:"observations"`

	IsGroup  bool  `json:"isGroup" gorm:"default:false"`
	ParentID *uint `json:"parentId" gorm:"index"`

	Services []LocationService `json:"services,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName define o nome da tabela para o modelo Location
func (Location) TableName() string {
	return "locations"
}

// LocationService é a tabela de junção local/serviço com a medição
// contratada. Uma linha por par (local, serviço).
type LocationService struct {
	ID         uint `json:"id" gorm:"primarykey"`
	LocationID uint `json:"locationId" gorm:"uniqueIndex:idx_location_service;not null"`
	ServiceID  uint `json:"serviceId" gorm:"uniqueIndex:idx_location_service;not null"`

	Measurement decimal.Decimal `json:"measurement" gorm:"type:decimal(14,2);not null"`

	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

// TableName define o nome da tabela para o modelo LocationService
func (LocationService) TableName() string {
	return "location_services"
}
