package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"backend_crb/models"
	"backend_crb/services"
)

// LocationAPI concentra as rotas da árvore de locais
type LocationAPI struct {
	DB    *gorm.DB
	Cache *services.CacheService
}

// NewLocationAPI cria uma nova instância de LocationAPI
func NewLocationAPI(db *gorm.DB, cache *services.CacheService) *LocationAPI {
	return &LocationAPI{DB: db, Cache: cache}
}

// LocationServiceInput é um item do conjunto de serviços de um local
type LocationServiceInput struct {
	ServiceID   uint            `json:"service_id" binding:"required"`
	Measurement decimal.Decimal `json:"measurement"`
}

// LocationRequest representa criação/atualização de um local
type LocationRequest struct {
	City         string                 `json:"city"`
	Name         string                 `json:"name" binding:"required"`
	Lat          *float64               `json:"lat"`
	Lng          *float64               `json:"lng"`
	Observations string                 `json:"observations"`
	IsGroup      bool                   `json:"isGroup"`
	ParentID     *uint                  `json:"parentId"`
	Services     []LocationServiceInput `json:"services"`
}

// LocationServiceView é a visão externa de um serviço vinculado ao local
type LocationServiceView struct {
	ServiceID   uint            `json:"serviceId"`
	Name        string          `json:"name"`
	Measurement decimal.Decimal `json:"measurement"`
	Unit        *models.Unit    `json:"unit"`
}

// LocationView é a visão externa de um local. O campo interno City é
// exposto como contractGroup: não confundir com o contractGroup da
// entidade ContractConfig.
type LocationView struct {
	ID            uint                  `json:"id"`
	ContractGroup string                `json:"contractGroup"`
	Name          string                `json:"name"`
	Lat           *float64              `json:"lat"`
	Lng           *float64              `json:"lng"`
	Observations  string                `json:"observations"`
	IsGroup       bool                  `json:"isGroup"`
	ParentID      *uint                 `json:"parentId"`
	Services      []LocationServiceView `json:"services"`
}

// toLocationView converte o modelo interno na visão externa canônica.
// Todo renomeio de campo acontece aqui, em um único lugar.
func toLocationView(loc *models.Location) LocationView {
	view := LocationView{
		ID:            loc.ID,
		ContractGroup: loc.City,
		Name:          loc.Name,
		Lat:           loc.Lat,
		Lng:           loc.Lng,
		Observations:  loc.Observations,
		IsGroup:       loc.IsGroup,
		ParentID:      loc.ParentID,
		Services:      make([]LocationServiceView, 0, len(loc.Services)),
	}
	for _, ls := range loc.Services {
		item := LocationServiceView{
			ServiceID:   ls.ServiceID,
			Measurement: ls.Measurement,
		}
		if ls.Service != nil {
			item.Name = ls.Service.Name
			item.Unit = ls.Service.Unit
		}
		view.Services = append(view.Services, item)
	}
	return view
}

// GetLocations retorna todos os locais com serviços, medições e unidades
// aninhados. A visão completa é cacheada no Redis.
func (api *LocationAPI) GetLocations(c *gin.Context) {
	var views []LocationView
	if api.Cache.GetLocations(&views) {
		c.JSON(http.StatusOK, views)
		return
	}

	var locations []models.Location
	err := api.DB.
		Preload("Services").
		Preload("Services.Service").
		Preload("Services.Service.Unit").
		Order("name ASC").
		Find(&locations).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar locais."})
		return
	}

	views = make([]LocationView, 0, len(locations))
	for i := range locations {
		views = append(views, toLocationView(&locations[i]))
	}

	api.Cache.SetLocations(views)
	c.JSON(http.StatusOK, views)
}

// CreateLocation cria um local com seu conjunto de serviços
func (api *LocationAPI) CreateLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dados inválidos: " + err.Error()})
		return
	}

	location := models.Location{
		City:         req.City,
		Name:         req.Name,
		Lat:          req.Lat,
		Lng:          req.Lng,
		Observations: req.Observations,
		IsGroup:      req.IsGroup,
		ParentID:     req.ParentID,
	}
	for _, s := range req.Services {
		location.Services = append(location.Services, models.LocationService{
			ServiceID:   s.ServiceID,
			Measurement: s.Measurement,
		})
	}

	if err := api.DB.Create(&location).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao criar local: " + err.Error()})
		return
	}

	api.Cache.InvalidateLocations()
	c.JSON(http.StatusCreated, location)
}

// UpdateLocation atualiza um local substituindo integralmente seu conjunto
// de serviços: remove as medições antigas e insere as novas na mesma
// transação, para que falha parcial nunca misture estados.
func (api *LocationAPI) UpdateLocation(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de local inválido."})
		return
	}

	var location models.Location
	if err := api.DB.First(&location, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Local não encontrado."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar local."})
		return
	}

	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dados inválidos: " + err.Error()})
		return
	}

	err = api.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("location_id = ?", location.ID).
			Delete(&models.LocationService{}).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"city":         req.City,
			"name":         req.Name,
			"lat":          req.Lat,
			"lng":          req.Lng,
			"observations": req.Observations,
		}
		if err := tx.Model(&location).Updates(updates).Error; err != nil {
			return err
		}

		for _, s := range req.Services {
			ls := models.LocationService{
				LocationID:  location.ID,
				ServiceID:   s.ServiceID,
				Measurement: s.Measurement,
			}
			if err := tx.Create(&ls).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao atualizar local: " + err.Error()})
		return
	}

	api.Cache.InvalidateLocations()
	c.JSON(http.StatusOK, location)
}

// DeleteLocation remove um local e suas medições
func (api *LocationAPI) DeleteLocation(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de local inválido."})
		return
	}

	var location models.Location
	if err := api.DB.First(&location, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Local não encontrado."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar local."})
		return
	}

	err = api.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("location_id = ?", location.ID).
			Delete(&models.LocationService{}).Error; err != nil {
			return err
		}
		return tx.Delete(&location).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao excluir local."})
		return
	}

	api.Cache.InvalidateLocations()
	c.Status(http.StatusNoContent)
}
