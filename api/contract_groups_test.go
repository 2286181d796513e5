package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"backend_crb/models"
	"backend_crb/services"
	"backend_crb/testutils"
)

func setupGroupTestRouter(t *testing.T, db *gorm.DB, admin *models.User) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	testutils.SetupTestConfig()

	audit := services.NewAuditService(db, nil)
	cache := services.NewCacheService(0, nil)
	groups := services.NewContractGroupService(db, nil)
	notifications := services.NewNotificationService(testutils.SetupTestConfig(), nil)
	groupAPI := NewContractGroupAPI(db, groups, audit, cache, notifications)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user", admin)
		c.Next()
	})

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/contract-configs", groupAPI.GetConfigs)
		apiGroup.POST("/contract-configs", groupAPI.SaveConfigs)
		apiGroup.GET("/contract-groups", groupAPI.GetGroupNames)
		apiGroup.PUT("/contract-groups/:name", groupAPI.RenameGroup)
		apiGroup.DELETE("/contract-groups/:name", groupAPI.DeleteGroup)
	}

	return router
}

func deleteJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodDelete, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRenameGroupEndpoint(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	admin, err := testutils.CreateTestAdmin(db)
	require.NoError(t, err)
	service, err := testutils.CreateTestService(db, "Roçada")
	require.NoError(t, err)
	_, err = testutils.CreateTestLocation(db, "Bairro Centro", "Praça", decimal.NewFromInt(100), service.ID)
	require.NoError(t, err)

	router := setupGroupTestRouter(t, db, admin)

	// Nomes de grupo podem conter espaços e acentos
	path := "/api/contract-groups/" + url.PathEscape("Bairro Centro")
	w := putJSON(router, path, gin.H{"newName": "Centro Novo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "renomeado para 'Centro Novo' com sucesso")

	var count int64
	db.Model(&models.Location{}).Where("city = ?", "Centro Novo").Count(&count)
	assert.Equal(t, int64(1), count)

	// A operação gera auditoria
	db.Model(&models.AuditLog{}).Where("action = ?", models.AuditActionGroupRename).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRenameGroupEmptyNameRejected(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	admin, err := testutils.CreateTestAdmin(db)
	require.NoError(t, err)
	router := setupGroupTestRouter(t, db, admin)

	w := putJSON(router, "/api/contract-groups/Zona%20Sul", gin.H{"newName": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteGroupWrongPassword(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	admin, err := testutils.CreateTestAdmin(db)
	require.NoError(t, err)
	service, err := testutils.CreateTestService(db, "Roçada")
	require.NoError(t, err)
	_, err = testutils.CreateTestLocation(db, "Zona Sul", "Praça", decimal.NewFromInt(100), service.ID)
	require.NoError(t, err)

	router := setupGroupTestRouter(t, db, admin)

	w := deleteJSON(router, "/api/contract-groups/Zona%20Sul", gin.H{"password": "errada"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Senha incorreta.")
}

func TestDeleteGroupBlockedByRecords(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	admin, err := testutils.CreateTestAdmin(db)
	require.NoError(t, err)
	service, err := testutils.CreateTestService(db, "Roçada")
	require.NoError(t, err)
	_, err = testutils.CreateTestLocation(db, "Zona Sul", "Praça", decimal.NewFromInt(100), service.ID)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = testutils.CreateTestRecord(db, admin, service, "Zona Sul", decimal.NewFromInt(100))
		require.NoError(t, err)
	}

	router := setupGroupTestRouter(t, db, admin)

	w := deleteJSON(router, "/api/contract-groups/Zona%20Sul", gin.H{"password": "admin123"})
	require.Equal(t, http.StatusConflict, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(3), resp["recordCount"])
}

func TestDeleteGroupSuccess(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	admin, err := testutils.CreateTestAdmin(db)
	require.NoError(t, err)
	service, err := testutils.CreateTestService(db, "Roçada")
	require.NoError(t, err)
	_, err = testutils.CreateTestLocation(db, "Zona Sul", "Praça", decimal.NewFromInt(100), service.ID)
	require.NoError(t, err)

	router := setupGroupTestRouter(t, db, admin)

	w := deleteJSON(router, "/api/contract-groups/Zona%20Sul", gin.H{"password": "admin123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var count int64
	db.Model(&models.Location{}).Where("city = ?", "Zona Sul").Count(&count)
	assert.Zero(t, count)
	db.Model(&models.AuditLog{}).Where("action = ?", models.AuditActionGroupDelete).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSaveConfigsClampsCycleStartDay(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	admin, err := testutils.CreateTestAdmin(db)
	require.NoError(t, err)
	router := setupGroupTestRouter(t, db, admin)

	w := postJSON(router, "/api/contract-configs", gin.H{
		"configs": []gin.H{
			{"contractGroup": "Zona Sul", "cycleStartDay": 15},
			{"contractGroup": "Zona Norte", "cycleStartDay": 31},
			{"contractGroup": "Bairro Centro", "cycleStartDay": 0},
		},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var configs []models.ContractConfig
	require.NoError(t, db.Order("contract_group").Find(&configs).Error)
	require.Len(t, configs, 3)

	byGroup := make(map[string]int)
	for _, config := range configs {
		byGroup[config.ContractGroup] = config.CycleStartDay
	}
	assert.Equal(t, 15, byGroup["Zona Sul"])
	// Valores fora de 1..28 caem para o dia 1
	assert.Equal(t, 1, byGroup["Zona Norte"])
	assert.Equal(t, 1, byGroup["Bairro Centro"])

	// Salvar de novo atualiza em vez de duplicar
	w = postJSON(router, "/api/contract-configs", gin.H{
		"configs": []gin.H{{"contractGroup": "Zona Sul", "cycleStartDay": 20}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.ContractConfig
	require.NoError(t, db.Where("contract_group = ?", "Zona Sul").First(&updated).Error)
	assert.Equal(t, 20, updated.CycleStartDay)
}
