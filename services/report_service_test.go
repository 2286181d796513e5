package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"backend_crb/models"
	"backend_crb/testutils"
)

func createRecordAt(t *testing.T, db *gorm.DB, service *models.Service, group string, area decimal.Decimal, start time.Time) *models.Record {
	t.Helper()
	record := &models.Record{
		ServiceID:     service.ID,
		ServiceType:   service.Name,
		ContractGroup: group,
		LocationArea:  area,
		StartTime:     start,
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

func TestPerformanceGraphAggregatesByMonthAndGroup(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	service, err := testutils.CreateTestService(db, "Roçada")
	require.NoError(t, err)

	jan := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 12, 8, 0, 0, 0, time.UTC)

	createRecordAt(t, db, service, "Zona Sul", decimal.NewFromInt(100), jan)
	createRecordAt(t, db, service, "Zona Sul", decimal.NewFromInt(50), jan.AddDate(0, 0, 5))
	createRecordAt(t, db, service, "Zona Sul", decimal.NewFromInt(200), feb)
	createRecordAt(t, db, service, "Zona Norte", decimal.NewFromInt(300), jan)

	// A medição ajustada substitui a área original na agregação
	overridden := createRecordAt(t, db, service, "Zona Norte", decimal.NewFromInt(999), feb)
	override := decimal.NewFromInt(10)
	require.NoError(t, db.Model(overridden).Update("override_measurement", override).Error)

	// Registros sem medição positiva ficam de fora
	createRecordAt(t, db, service, "Zona Sul", decimal.Zero, jan)

	svc := NewReportService(db, nil)
	data, err := svc.PerformanceGraph(
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		[]string{"Zona Sul", "Zona Norte"},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"2026-01", "2026-02"}, data.Labels)
	require.Len(t, data.Datasets, 2)

	sul := data.Datasets[0]
	assert.Equal(t, "Zona Sul", sul.Label)
	assert.Equal(t, []float64{150, 200}, sul.Data)
	assert.Equal(t, "#352f91", sul.BorderColor)
	assert.Equal(t, "#352f9180", sul.BackgroundColor)

	norte := data.Datasets[1]
	assert.Equal(t, []float64{300, 10}, norte.Data)
	assert.Equal(t, "#4a5568", norte.BorderColor)
}

func TestPerformanceGraphRequiresGroups(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	svc := NewReportService(db, nil)
	_, err = svc.PerformanceGraph(time.Now().AddDate(0, -1, 0), time.Now(), nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMonthlySummaryHonorsCycleStartDay(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	service, err := testutils.CreateTestService(db, "Roçada")
	require.NoError(t, err)

	_, err = testutils.CreateTestLocation(db, "Zona Sul", "Local", decimal.NewFromInt(100), service.ID)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.ContractConfig{ContractGroup: "Zona Sul", CycleStartDay: 15}).Error)

	// Dentro do ciclo: de 15/01 (inclusive) até 15/02 (exclusive)
	createRecordAt(t, db, service, "Zona Sul", decimal.NewFromInt(100),
		time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC))
	createRecordAt(t, db, service, "Zona Sul", decimal.NewFromInt(50),
		time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC))

	// Fora do ciclo
	createRecordAt(t, db, service, "Zona Sul", decimal.NewFromInt(999),
		time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC))
	createRecordAt(t, db, service, "Zona Sul", decimal.NewFromInt(999),
		time.Date(2026, 2, 16, 8, 0, 0, 0, time.UTC))

	require.NoError(t, db.Create(&models.Goal{
		ContractGroup: "Zona Sul",
		Month:         "2026-01",
		TargetArea:    decimal.NewFromInt(500),
		ServiceID:     service.ID,
	}).Error)

	svc := NewReportService(db, nil)
	rows, err := svc.MonthlySummary("2026-01")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "Zona Sul", row.ContractGroup)
	assert.Equal(t, "Roçada", row.ServiceType)
	assert.Equal(t, 2, row.RecordCount)
	assert.True(t, row.TotalArea.Equal(decimal.NewFromInt(150)), "área total %s", row.TotalArea)
	assert.True(t, row.TargetArea.Equal(decimal.NewFromInt(500)), "meta %s", row.TargetArea)
	assert.Equal(t, 15, row.CycleStart.Day())
}

func TestMonthlySummaryRejectsBadMonth(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	svc := NewReportService(db, nil)
	_, err = svc.MonthlySummary("janeiro")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExportMonthlySummaryXLSX(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	service, err := testutils.CreateTestService(db, "Roçada")
	require.NoError(t, err)
	_, err = testutils.CreateTestLocation(db, "Zona Sul", "Local", decimal.NewFromInt(100), service.ID)
	require.NoError(t, err)
	createRecordAt(t, db, service, "Zona Sul", decimal.NewFromInt(100),
		time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC))

	svc := NewReportService(db, nil)
	content, err := svc.ExportMonthlySummaryXLSX("2026-01")
	require.NoError(t, err)
	assert.NotEmpty(t, content)
	// Arquivos XLSX são pacotes ZIP
	assert.Equal(t, []byte{'P', 'K'}, content[:2])
}

func TestExportMonthlySummaryPDF(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)

	svc := NewReportService(db, nil)
	content, err := svc.ExportMonthlySummaryPDF("2026-01")
	require.NoError(t, err)
	assert.True(t, len(content) > 4)
	assert.Equal(t, "%PDF", string(content[:4]))
}
