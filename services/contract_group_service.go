package services

import (
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"backend_crb/models"
)

// ContractGroupService executa as operações de consistência sobre o rótulo
// de grupo de contrato. O rótulo não é chave estrangeira: ele se repete em
// locations.city, contract_configs, records e dentro da sequência de
// vínculos embutida em cada usuário, então renomear ou excluir um grupo é
// uma cascata multi-tabela que precisa ser atômica.
type ContractGroupService struct {
	DB     *gorm.DB
	Logger *log.Logger
}

// NewContractGroupService cria um novo serviço de grupos de contrato
func NewContractGroupService(db *gorm.DB, logger *log.Logger) *ContractGroupService {
	return &ContractGroupService{DB: db, Logger: logger}
}

// RenameResult resume uma renomeação bem-sucedida
type RenameResult struct {
	OldName          string `json:"oldName"`
	NewName          string `json:"newName"`
	LocationsUpdated int64  `json:"locationsUpdated"`
	ConfigsUpdated   int64  `json:"configsUpdated"`
	RecordsUpdated   int64  `json:"recordsUpdated"`
	UsersUpdated     int    `json:"usersUpdated"`
	Message          string `json:"message"`
}

// Rename renomeia um grupo de contrato em todas as quatro formas de
// armazenamento, em uma única transação. Colisão com um grupo existente
// não é rejeitada: os dois grupos passam a ser um só.
func (s *ContractGroupService) Rename(oldName, newName string) (*RenameResult, error) {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)

	if oldName == "" {
		return nil, NewValidationError("o nome atual do contrato é obrigatório")
	}
	if newName == "" {
		return nil, NewValidationError("o novo nome do contrato é obrigatório")
	}

	result := &RenameResult{OldName: oldName, NewName: newName}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// 1. Rótulo relacional nos locais
		res := tx.Model(&models.Location{}).Where("city = ?", oldName).Update("city", newName)
		if res.Error != nil {
			return res.Error
		}
		result.LocationsUpdated = res.RowsAffected

		// 2. Configurações de contrato. Quando o destino já possui
		// configuração, a do grupo antigo é descartada em favor da
		// existente, já que o rótulo é único nessa tabela.
		var existingConfigs int64
		if err := tx.Model(&models.ContractConfig{}).Where("contract_group = ?", newName).
			Count(&existingConfigs).Error; err != nil {
			return err
		}
		if existingConfigs > 0 {
			res = tx.Where("contract_group = ?", oldName).Delete(&models.ContractConfig{})
		} else {
			res = tx.Model(&models.ContractConfig{}).Where("contract_group = ?", oldName).
				Update("contract_group", newName)
		}
		if res.Error != nil {
			return res.Error
		}
		result.ConfigsUpdated = res.RowsAffected

		// 3. Cópias desnormalizadas nos registros de serviço
		res = tx.Model(&models.Record{}).Where("contract_group = ?", oldName).
			Update("contract_group", newName)
		if res.Error != nil {
			return res.Error
		}
		result.RecordsUpdated = res.RowsAffected

		// 4. Sequências embutidas nos usuários. Só reescreve usuários cuja
		// sequência realmente mudou, preservando ordem e demais campos.
		var users []models.User
		if err := tx.Find(&users).Error; err != nil {
			return err
		}

		for i := range users {
			user := &users[i]
			changed := false
			for j := range user.Assignments {
				if user.Assignments[j].ContractGroup == oldName {
					user.Assignments[j].ContractGroup = newName
					changed = true
				}
			}
			if !changed {
				continue
			}

			if err := s.writeAssignments(tx, user); err != nil {
				return err
			}
			result.UsersUpdated++
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Message = fmt.Sprintf("Grupo de contrato '%s' renomeado para '%s' com sucesso.", oldName, newName)
	if s.Logger != nil {
		s.Logger.Printf("Grupo de contrato renomeado: %q -> %q (%d locais, %d configs, %d registros, %d usuários)",
			oldName, newName, result.LocationsUpdated, result.ConfigsUpdated,
			result.RecordsUpdated, result.UsersUpdated)
	}
	return result, nil
}

// DeleteResult resume uma exclusão bem-sucedida
type DeleteResult struct {
	Name             string `json:"name"`
	LocationsDeleted int64  `json:"locationsDeleted"`
	ConfigsDeleted   int64  `json:"configsDeleted"`
	UsersUpdated     int    `json:"usersUpdated"`
	Message          string `json:"message"`
}

// Delete exclui um grupo de contrato e seus locais após revalidar a senha
// do administrador. Registros de serviço nunca são apagados por este
// caminho: a presença de qualquer registro do grupo recusa a operação
// inteira. A contagem de guarda roda dentro da mesma transação das
// exclusões, aproximando guarda e commit de um snapshot consistente.
func (s *ContractGroupService) Delete(adminID uint, name, password string) (*DeleteResult, error) {
	name = strings.TrimSpace(name)

	if name == "" {
		return nil, NewValidationError("o nome do contrato é obrigatório")
	}
	if password == "" {
		return nil, NewValidationError("a senha administrativa é obrigatória")
	}

	// Reautentica o administrador contra o hash armazenado
	var admin models.User
	if err := s.DB.First(&admin, adminID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: senha incorreta", ErrUnauthorized)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: senha incorreta", ErrUnauthorized)
	}

	result := &DeleteResult{Name: name}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// Guarda: registros de serviço bloqueiam a exclusão
		var recordCount int64
		if err := tx.Model(&models.Record{}).Where("contract_group = ?", name).
			Count(&recordCount).Error; err != nil {
			return err
		}
		if recordCount > 0 {
			return &ConflictError{
				Count: recordCount,
				Message: fmt.Sprintf("Não é possível excluir o contrato, pois ele possui %d registros de serviço associados.",
					recordCount),
			}
		}

		// Remove as medições dos locais do grupo antes dos próprios locais
		var locationIDs []uint
		if err := tx.Model(&models.Location{}).Where("city = ?", name).
			Pluck("id", &locationIDs).Error; err != nil {
			return err
		}
		if len(locationIDs) > 0 {
			if err := tx.Where("location_id IN ?", locationIDs).
				Delete(&models.LocationService{}).Error; err != nil {
				return err
			}
		}

		res := tx.Where("city = ?", name).Delete(&models.Location{})
		if res.Error != nil {
			return res.Error
		}
		result.LocationsDeleted = res.RowsAffected

		res = tx.Where("contract_group = ?", name).Delete(&models.ContractConfig{})
		if res.Error != nil {
			return res.Error
		}
		result.ConfigsDeleted = res.RowsAffected

		// Remove os vínculos do grupo das sequências embutidas, mantendo a
		// ordem dos demais e escrevendo apenas usuários alterados
		var users []models.User
		if err := tx.Find(&users).Error; err != nil {
			return err
		}

		for i := range users {
			user := &users[i]
			filtered := user.Assignments[:0:0]
			for _, a := range user.Assignments {
				if a.ContractGroup != name {
					filtered = append(filtered, a)
				}
			}
			if len(filtered) == len(user.Assignments) {
				continue
			}

			user.Assignments = filtered
			if err := s.writeAssignments(tx, user); err != nil {
				return err
			}
			result.UsersUpdated++
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Message = fmt.Sprintf("Grupo de contrato '%s' e seus locais foram excluídos com sucesso.", name)
	if s.Logger != nil {
		s.Logger.Printf("Grupo de contrato excluído: %q (%d locais, %d configs, %d usuários)",
			name, result.LocationsDeleted, result.ConfigsDeleted, result.UsersUpdated)
	}
	return result, nil
}

// ListNames retorna os rótulos de grupo conhecidos, unindo os que aparecem
// em locais e em configurações
func (s *ContractGroupService) ListNames() ([]string, error) {
	var fromLocations []string
	if err := s.DB.Model(&models.Location{}).Distinct("city").Order("city").
		Pluck("city", &fromLocations).Error; err != nil {
		return nil, err
	}

	var fromConfigs []string
	if err := s.DB.Model(&models.ContractConfig{}).Distinct("contract_group").
		Order("contract_group").Pluck("contract_group", &fromConfigs).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(fromLocations)+len(fromConfigs))
	names := make([]string, 0, len(fromLocations)+len(fromConfigs))
	for _, lists := range [][]string{fromLocations, fromConfigs} {
		for _, n := range lists {
			if n != "" && !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names, nil
}

// writeAssignments reescreve a sequência de vínculos de um usuário com
// verificação de versão, prevenindo atualizações perdidas sob edição
// concorrente da mesma sequência.
func (s *ContractGroupService) writeAssignments(tx *gorm.DB, user *models.User) error {
	res := tx.Model(&models.User{}).
		Where("id = ? AND version = ?", user.ID, user.Version).
		Updates(map[string]interface{}{
			"assignments": user.Assignments,
			"version":     user.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("conflito de versão ao atualizar vínculos do usuário %d", user.ID)
	}
	user.Version++
	return nil
}
