package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"backend_crb/models"
	"backend_crb/testutils"
)

func setupGroupFixtures(t *testing.T, db *gorm.DB) *models.Service {
	t.Helper()
	service, err := testutils.CreateTestService(db, "Roçada")
	require.NoError(t, err)
	return service
}

func TestRenameUpdatesAllStores(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	service := setupGroupFixtures(t, db)

	_, err = testutils.CreateTestLocation(db, "Bairro Centro", "Praça Principal", decimal.NewFromInt(500), service.ID)
	require.NoError(t, err)
	_, err = testutils.CreateTestLocation(db, "Bairro Centro", "Rua das Flores", decimal.NewFromInt(300), service.ID)
	require.NoError(t, err)
	_, err = testutils.CreateTestLocation(db, "Zona Sul", "Avenida Beira-Mar", decimal.NewFromInt(800), service.ID)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.ContractConfig{ContractGroup: "Bairro Centro", CycleStartDay: 5}).Error)

	operator, err := testutils.CreateTestUser(db, "João", "joao@teste.com", "senha123", models.RoleOperator,
		models.AssignmentList{
			{ContractGroup: "Bairro Centro", Role: "lead"},
			{ContractGroup: "Zona Sul", Role: "member"},
		})
	require.NoError(t, err)

	bystander, err := testutils.CreateTestUser(db, "Maria", "maria@teste.com", "senha123", models.RoleOperator,
		models.AssignmentList{{ContractGroup: "Zona Sul", Role: "member"}})
	require.NoError(t, err)

	_, err = testutils.CreateTestRecord(db, operator, service, "Bairro Centro", decimal.NewFromInt(500))
	require.NoError(t, err)

	svc := NewContractGroupService(db, nil)
	result, err := svc.Rename("Bairro Centro", "Centro Novo")
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.LocationsUpdated)
	assert.Equal(t, int64(1), result.ConfigsUpdated)
	assert.Equal(t, int64(1), result.RecordsUpdated)
	assert.Equal(t, 1, result.UsersUpdated)
	assert.Equal(t, "Grupo de contrato 'Bairro Centro' renomeado para 'Centro Novo' com sucesso.", result.Message)

	// Nenhuma ocorrência do rótulo antigo deve sobrar
	var count int64
	db.Model(&models.Location{}).Where("city = ?", "Bairro Centro").Count(&count)
	assert.Zero(t, count)
	db.Model(&models.Location{}).Where("city = ?", "Centro Novo").Count(&count)
	assert.Equal(t, int64(2), count)

	var config models.ContractConfig
	require.NoError(t, db.Where("contract_group = ?", "Centro Novo").First(&config).Error)
	assert.Equal(t, 5, config.CycleStartDay)

	db.Model(&models.Record{}).Where("contract_group = ?", "Centro Novo").Count(&count)
	assert.Equal(t, int64(1), count)

	// O vínculo renomeado mantém posição e os demais não mudam
	var updated models.User
	require.NoError(t, db.First(&updated, operator.ID).Error)
	require.Len(t, updated.Assignments, 2)
	assert.Equal(t, "Centro Novo", updated.Assignments[0].ContractGroup)
	assert.Equal(t, "lead", updated.Assignments[0].Role)
	assert.Equal(t, "Zona Sul", updated.Assignments[1].ContractGroup)
	assert.Equal(t, operator.Version+1, updated.Version)

	// Usuário sem vínculo com o grupo não é reescrito
	var untouched models.User
	require.NoError(t, db.First(&untouched, bystander.ID).Error)
	assert.Equal(t, bystander.Version, untouched.Version)
}

func TestRenameValidatesNames(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	svc := NewContractGroupService(db, nil)

	_, err = svc.Rename("  ", "Centro Novo")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Rename("Bairro Centro", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRenameMergesIntoExistingGroup(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	service := setupGroupFixtures(t, db)

	_, err = testutils.CreateTestLocation(db, "Grupo A", "Local A", decimal.NewFromInt(100), service.ID)
	require.NoError(t, err)
	_, err = testutils.CreateTestLocation(db, "Grupo B", "Local B", decimal.NewFromInt(200), service.ID)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.ContractConfig{ContractGroup: "Grupo A", CycleStartDay: 3}).Error)
	require.NoError(t, db.Create(&models.ContractConfig{ContractGroup: "Grupo B", CycleStartDay: 10}).Error)

	svc := NewContractGroupService(db, nil)
	_, err = svc.Rename("Grupo A", "Grupo B")
	require.NoError(t, err)

	// Os dois grupos viram um só; a configuração existente do destino vence
	var locations int64
	db.Model(&models.Location{}).Where("city = ?", "Grupo B").Count(&locations)
	assert.Equal(t, int64(2), locations)

	var configs []models.ContractConfig
	require.NoError(t, db.Where("contract_group = ?", "Grupo B").Find(&configs).Error)
	require.Len(t, configs, 1)
	assert.Equal(t, 10, configs[0].CycleStartDay)

	var orphanConfigs int64
	db.Model(&models.ContractConfig{}).Where("contract_group = ?", "Grupo A").Count(&orphanConfigs)
	assert.Zero(t, orphanConfigs)
}

func TestDeleteRequiresCorrectPassword(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	service := setupGroupFixtures(t, db)
	admin, err := testutils.CreateTestAdmin(db)
	require.NoError(t, err)

	_, err = testutils.CreateTestLocation(db, "Zona Sul", "Local", decimal.NewFromInt(100), service.ID)
	require.NoError(t, err)

	svc := NewContractGroupService(db, nil)
	_, err = svc.Delete(admin.ID, "Zona Sul", "senha-errada")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Nada foi excluído
	var count int64
	db.Model(&models.Location{}).Where("city = ?", "Zona Sul").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestDeleteBlockedByServiceRecords(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	service := setupGroupFixtures(t, db)
	admin, err := testutils.CreateTestAdmin(db)
	require.NoError(t, err)

	_, err = testutils.CreateTestLocation(db, "Zona Sul", "Local", decimal.NewFromInt(100), service.ID)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.ContractConfig{ContractGroup: "Zona Sul"}).Error)

	for i := 0; i < 3; i++ {
		_, err = testutils.CreateTestRecord(db, admin, service, "Zona Sul", decimal.NewFromInt(100))
		require.NoError(t, err)
	}

	svc := NewContractGroupService(db, nil)
	_, err = svc.Delete(admin.ID, "Zona Sul", "admin123")
	require.Error(t, err)

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, int64(3), conflict.Count)

	// A recusa deixa o grupo intacto
	var count int64
	db.Model(&models.Location{}).Where("city = ?", "Zona Sul").Count(&count)
	assert.Equal(t, int64(1), count)
	db.Model(&models.ContractConfig{}).Where("contract_group = ?", "Zona Sul").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestDeleteCascadesAcrossStores(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	service := setupGroupFixtures(t, db)
	admin, err := testutils.CreateTestAdmin(db)
	require.NoError(t, err)

	doomed, err := testutils.CreateTestLocation(db, "Zona Sul", "Local Sul", decimal.NewFromInt(100), service.ID)
	require.NoError(t, err)
	_, err = testutils.CreateTestLocation(db, "Zona Norte", "Local Norte", decimal.NewFromInt(200), service.ID)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.ContractConfig{ContractGroup: "Zona Sul"}).Error)

	operator, err := testutils.CreateTestUser(db, "Pedro", "pedro@teste.com", "senha123", models.RoleOperator,
		models.AssignmentList{
			{ContractGroup: "Zona Norte", Role: "member"},
			{ContractGroup: "Zona Sul", Role: "lead"},
			{ContractGroup: "Zona Leste", Role: "member"},
		})
	require.NoError(t, err)

	svc := NewContractGroupService(db, nil)
	result, err := svc.Delete(admin.ID, "Zona Sul", "admin123")
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.LocationsDeleted)
	assert.Equal(t, int64(1), result.ConfigsDeleted)
	assert.Equal(t, 1, result.UsersUpdated)

	var count int64
	db.Model(&models.Location{}).Where("city = ?", "Zona Sul").Count(&count)
	assert.Zero(t, count)
	db.Model(&models.LocationService{}).Where("location_id = ?", doomed.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.ContractConfig{}).Where("contract_group = ?", "Zona Sul").Count(&count)
	assert.Zero(t, count)

	// Grupo vizinho permanece
	db.Model(&models.Location{}).Where("city = ?", "Zona Norte").Count(&count)
	assert.Equal(t, int64(1), count)

	// O vínculo removido some e a ordem dos demais é mantida
	var updated models.User
	require.NoError(t, db.First(&updated, operator.ID).Error)
	require.Len(t, updated.Assignments, 2)
	assert.Equal(t, "Zona Norte", updated.Assignments[0].ContractGroup)
	assert.Equal(t, "Zona Leste", updated.Assignments[1].ContractGroup)
}

func TestWriteAssignmentsDetectsVersionConflict(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	user, err := testutils.CreateTestUser(db, "Ana", "ana@teste.com", "senha123", models.RoleOperator,
		models.AssignmentList{{ContractGroup: "Zona Sul", Role: "member"}})
	require.NoError(t, err)

	// Outra escrita incrementa a versão por fora
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("version", user.Version+1).Error)

	svc := NewContractGroupService(db, nil)
	stale := *user
	err = svc.writeAssignments(db, &stale)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflito de versão")
}

func TestListNamesUnionsLocationsAndConfigs(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	service := setupGroupFixtures(t, db)
	_, err = testutils.CreateTestLocation(db, "Zona Sul", "Local", decimal.NewFromInt(100), service.ID)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.ContractConfig{ContractGroup: "Zona Sul"}).Error)
	require.NoError(t, db.Create(&models.ContractConfig{ContractGroup: "Bairro Centro"}).Error)

	svc := NewContractGroupService(db, nil)
	names, err := svc.ListNames()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Zona Sul", "Bairro Centro"}, names)
}

func TestDeleteUnknownAdminRejected(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	svc := NewContractGroupService(db, nil)
	_, err = svc.Delete(999, "Zona Sul", "qualquer")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
