package database

import (
	"database/sql"
	"fmt"
	"log"

	"backend_crb/config"
	"backend_crb/models"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// CreateDatabaseIfNotExists cria o banco de dados caso ele não exista
func CreateDatabaseIfNotExists() error {
	cfg := config.GetConfig()

	// Conecta ao PostgreSQL sem apontar para o banco da aplicação
	adminDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=postgres sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.SSLMode)

	db, err := sql.Open("postgres", adminDSN)
	if err != nil {
		return fmt.Errorf("não foi possível conectar ao PostgreSQL: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("não foi possível verificar a conexão com o PostgreSQL: %w", err)
	}

	var exists bool
	query := "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1);"
	if err := db.QueryRow(query, cfg.Database.Name).Scan(&exists); err != nil {
		return fmt.Errorf("erro ao verificar a existência do banco: %w", err)
	}

	if exists {
		log.Printf("✅ Banco de dados '%s' já existe", cfg.Database.Name)
		return nil
	}

	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE %s;", cfg.Database.Name)); err != nil {
		return fmt.Errorf("não foi possível criar o banco '%s': %w", cfg.Database.Name, err)
	}

	log.Printf("✅ Banco de dados '%s' criado com sucesso", cfg.Database.Name)
	return nil
}

// ConnectDatabase inicializa a conexão com o PostgreSQL
func ConnectDatabase() error {
	cfg := config.GetConfig()

	logLevel := logger.Warn
	if cfg.App.Debug {
		logLevel = logger.Info
	}

	var err error
	DB, err = gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("não foi possível conectar ao banco de dados: %w", err)
	}

	log.Println("✅ Conectado ao PostgreSQL com sucesso")

	if err := autoMigrate(); err != nil {
		return fmt.Errorf("erro na automigração: %w", err)
	}

	return nil
}

// GetDB retorna a instância do banco de dados
func GetDB() *gorm.DB {
	return DB
}

// autoMigrate executa a automigração de todos os modelos
func autoMigrate() error {
	err := DB.AutoMigrate(
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
		return err
	}

	log.Println("✅ Automigração dos modelos executada com sucesso")
	return nil
}
