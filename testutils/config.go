package testutils

import (
	"time"

	"backend_crb/config"
)

// SetupTestConfig instala uma configuração mínima para os testes que
// passam pelo caminho de autenticação
func SetupTestConfig() *config.Config {
	cfg := &config.Config{
		App: config.AppConfig{
			Env:         "test",
			Port:        "8000",
			FrontendURL: "http://localhost:3000",
		},
		JWT: config.JWTConfig{
			Secret:    "segredo-de-teste-nao-usar-em-producao",
			ExpiresIn: time.Hour,
		},
		Uploads: config.UploadsConfig{Dir: "uploads"},
		Audit:   config.AuditConfig{RetentionDays: 365},
	}
	config.GlobalConfig = cfg
	return cfg
}
