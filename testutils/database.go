package testutils

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"backend_crb/models"
)

// SetupTestDB cria um banco de testes em memória com todas as migrações.
// Todos os testes devem usar esta função para manter o esquema consistente.
func SetupTestDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// Migrações na ordem das dependências
	err = db.AutoMigrate(
		&models.User{},
		&models.Unit{},
		&models.Service{},
		&models.Location{},
		&models.LocationService{},
		&models.Record{},
		&models.ContractConfig{},
		&models.Goal{},
		&models.AuditLog{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// CleanupTestDB fecha a conexão do banco de testes
func CleanupTestDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// CreateTestUser cria um usuário de teste com a senha informada já em hash
func CreateTestUser(db *gorm.DB, name, email, password, role string, assignments models.AssignmentList) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:        name,
		Email:       email,
		Password:    string(hash),
		Role:        role,
		Assignments: assignments,
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateTestAdmin cria um administrador de teste com senha "admin123"
func CreateTestAdmin(db *gorm.DB) (*models.User, error) {
	return CreateTestUser(db, "Admin Teste", "admin@teste.com", "admin123", models.RoleAdmin, nil)
}

// CreateTestService cria uma unidade e um serviço de teste
func CreateTestService(db *gorm.DB, name string) (*models.Service, error) {
	unit := &models.Unit{Name: "Metro Quadrado", Symbol: "m²"}
	if err := db.Create(unit).Error; err != nil {
		return nil, err
	}

	service := &models.Service{Name: name, UnitID: unit.ID}
	if err := db.Create(service).Error; err != nil {
		return nil, err
	}
	service.Unit = unit
	return service, nil
}

// CreateTestLocation cria um local de teste dentro de um grupo de contrato
func CreateTestLocation(db *gorm.DB, city, name string, area decimal.Decimal, serviceID uint) (*models.Location, error) {
	location := &models.Location{
		City: city,
		Name: name,
		Services: []models.LocationService{
			{ServiceID: serviceID, Measurement: area},
		},
	}
	if err := db.Create(location).Error; err != nil {
		return nil, err
	}
	return location, nil
}

// CreateTestRecord cria um registro de serviço de teste
func CreateTestRecord(db *gorm.DB, operator *models.User, service *models.Service, contractGroup string, area decimal.Decimal) (*models.Record, error) {
	record := &models.Record{
		ServiceID:     service.ID,
		ServiceType:   service.Name,
		ContractGroup: contractGroup,
		LocationName:  fmt.Sprintf("Local %s", contractGroup),
		LocationArea:  area,
		StartTime:     time.Now(),
		BeforePhotos:  models.PhotoList{},
		AfterPhotos:   models.PhotoList{},
	}
	if operator != nil {
		record.OperatorID = &operator.ID
		record.OperatorName = operator.Name
	}
	if err := db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}
