package services

import (
	"log"
	"time"

	"backend_crb/database"
)

// Chave do cache da visão aninhada de locais
const locationsCacheKey = "crb:locations:tree"

// CacheService guarda no Redis a visão aninhada de locais, a leitura mais
// pesada do sistema. Qualquer mutação de local ou de grupo de contrato
// invalida a chave. Quando o Redis está indisponível o cache vira um
// no-op e as leituras seguem direto para o banco.
type CacheService struct {
	TTL    time.Duration
	Logger *log.Logger
}

// NewCacheService cria um novo serviço de cache
func NewCacheService(ttl time.Duration, logger *log.Logger) *CacheService {
	return &CacheService{TTL: ttl, Logger: logger}
}

// GetLocations busca a visão de locais do cache; ok=false em cache miss
func (cs *CacheService) GetLocations(dest interface{}) bool {
	if database.GetRedis() == nil {
		return false
	}
	if err := database.CacheGetJSON(locationsCacheKey, dest); err != nil {
		return false
	}
	return true
}

// SetLocations armazena a visão de locais no cache
func (cs *CacheService) SetLocations(value interface{}) {
	if database.GetRedis() == nil {
		return
	}
	if err := database.CacheSetJSON(locationsCacheKey, value, cs.TTL); err != nil && cs.Logger != nil {
		cs.Logger.Printf("Falha ao gravar cache de locais: %v", err)
	}
}

// InvalidateLocations remove a visão de locais do cache
func (cs *CacheService) InvalidateLocations() {
	if database.GetRedis() == nil {
		return
	}
	if err := database.CacheDel(locationsCacheKey); err != nil && cs.Logger != nil {
		cs.Logger.Printf("Falha ao invalidar cache de locais: %v", err)
	}
}
