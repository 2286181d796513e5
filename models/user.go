package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Papéis de usuário do sistema
const (
	RoleAdmin    = "ADMIN"
	RoleOperator = "OPERATOR"
)

// Assignment representa um vínculo do usuário com um grupo de contrato.
// A sequência é armazenada em uma única coluna jsonb, preservando a ordem.
type Assignment struct {
	ContractGroup string `json:"contractGroup"`
	Role          string `json:"role,omitempty"`
}

// AssignmentList é a sequência ordenada de vínculos embutida no usuário
type AssignmentList []Assignment

// Value serializa a lista para armazenamento
func (a AssignmentList) Value() (driver.Value, error) {
	if a == nil {
		a = AssignmentList{}
	}
	return json.Marshal(a)
}

// Scan desserializa a lista vinda do banco
func (a *AssignmentList) Scan(value interface{}) error {
	if value == nil {
		*a = AssignmentList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("tipo inesperado para AssignmentList: %T", value)
	}
}

// User representa um usuário do sistema (administrador ou operador)
type User struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Name     string `json:"name" gorm:"not null"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"` // Hash bcrypt, nunca retornado em JSON
	Role     string `json:"role" gorm:"default:'OPERATOR'"`

	// Recuperação de senha
	ResetToken        *string    `json:"-"`
	ResetTokenExpires *time.Time `json:"-"`

	// Vínculos com grupos de contrato, embutidos como jsonb.
	// Version é incrementada a cada reescrita da sequência (lock otimista).
	Assignments AssignmentList `json:"assignments" gorm:"type:jsonb"`
	Version     int            `json:"-" gorm:"default:0"`
}

// TableName define o nome da tabela para o modelo User
func (User) TableName() string {
	return "users"
}

// IsAdmin verifica se o usuário tem papel de administrador
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
