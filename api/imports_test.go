package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"backend_crb/models"
	"backend_crb/services"
	"backend_crb/testutils"
)

func setupImportTestRouter(db *gorm.DB, admin *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)

	audit := services.NewAuditService(db, nil)
	cache := services.NewCacheService(0, nil)
	importAPI := NewImportAPI(db, services.NewLocationImportService(db, nil), cache, audit)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user", admin)
		c.Next()
	})
	router.POST("/api/locations/import", importAPI.ImportLocations)
	return router
}

func uploadImportFile(t *testing.T, router *gin.Engine, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/locations/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestImportLocationsCSV(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	admin, err := testutils.CreateTestAdmin(db)
	require.NoError(t, err)
	router := setupImportTestRouter(db, admin)

	csvData := "cidade,bairro,rua,lat,lng,observacoes\n" +
		"São Paulo,Bairro Centro,,,,\n" +
		"São Paulo,Bairro Centro,Rua das Flores,,,\n"

	w := uploadImportFile(t, router, "locais.csv", csvData)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var groups, members int64
	db.Model(&models.Location{}).Where("is_group = ?", true).Count(&groups)
	db.Model(&models.Location{}).Where("is_group = ?", false).Count(&members)
	assert.Equal(t, int64(1), groups)
	assert.Equal(t, int64(1), members)

	// A importação fica no log de auditoria
	var auditCount int64
	db.Model(&models.AuditLog{}).Where("action = ?", models.AuditActionLocationImport).Count(&auditCount)
	assert.Equal(t, int64(1), auditCount)
}

func TestImportLocationsUnsupportedExtension(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	admin, err := testutils.CreateTestAdmin(db)
	require.NoError(t, err)
	router := setupImportTestRouter(db, admin)

	w := uploadImportFile(t, router, "locais.pdf", "qualquer")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "csv")
}

func TestImportLocationsMissingFile(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	admin, err := testutils.CreateTestAdmin(db)
	require.NoError(t, err)
	router := setupImportTestRouter(db, admin)

	req := httptest.NewRequest(http.MethodPost, "/api/locations/import", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportLocationsBadHeader(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	admin, err := testutils.CreateTestAdmin(db)
	require.NoError(t, err)
	router := setupImportTestRouter(db, admin)

	w := uploadImportFile(t, router, "locais.csv", "coluna1,coluna2\na,b\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cidade")
}
