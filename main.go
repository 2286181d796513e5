package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"backend_crb/api"
	"backend_crb/config"
	"backend_crb/database"
	"backend_crb/middleware"
	"backend_crb/models"
	"backend_crb/services"
)

// initDB inicializa a conexão com o banco de dados
func initDB() {
	log.Println("🔧 Inicializando banco de dados...")

	if err := database.CreateDatabaseIfNotExists(); err != nil {
		log.Fatal("❌ Erro ao criar o banco de dados:", err)
	}

	if err := database.ConnectDatabase(); err != nil {
		log.Fatal("❌ Erro ao conectar ao banco de dados:", err)
	}

	log.Println("✅ Banco de dados inicializado com sucesso")
}

// seedDatabase garante os dados mínimos de operação: o administrador
// inicial e o catálogo padrão de unidades e serviços
func seedDatabase(db *gorm.DB) error {
	var adminCount int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&adminCount).Error; err != nil {
		return err
	}
	if adminCount == 0 {
		password := os.Getenv("ADMIN_INITIAL_PASSWORD")
		if password == "" {
			password = "admin123"
			log.Println("⚠️  ADMIN_INITIAL_PASSWORD não definido, usando senha padrão")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		admin := models.User{
			Name:     "Administrador",
			Email:    os.Getenv("ADMIN_INITIAL_EMAIL"),
			Password: string(hash),
			Role:     models.RoleAdmin,
		}
		if admin.Email == "" {
			admin.Email = "admin@crbservicos.com.br"
		}
		if err := db.Create(&admin).Error; err != nil {
			return err
		}
		log.Printf("✅ Administrador inicial criado: %s", admin.Email)
	}

	var unitCount int64
	if err := db.Model(&models.Unit{}).Count(&unitCount).Error; err != nil {
		return err
	}
	if unitCount == 0 {
		squareMeter := models.Unit{Name: "Metro Quadrado", Symbol: "m²"}
		linearMeter := models.Unit{Name: "Metro Linear", Symbol: "m"}
		if err := db.Create(&squareMeter).Error; err != nil {
			return err
		}
		if err := db.Create(&linearMeter).Error; err != nil {
			return err
		}

		defaults := []models.Service{
			{Name: "Varrição Manual", UnitID: linearMeter.ID},
			{Name: "Roçada", UnitID: squareMeter.ID},
			{Name: "Limpeza de Vidro", UnitID: squareMeter.ID},
		}
		if err := db.Create(&defaults).Error; err != nil {
			return err
		}
		log.Println("✅ Catálogo padrão de unidades e serviços criado")
	}

	return nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("❌ Erro ao carregar a configuração:", err)
	}

	initDB()
	db := database.GetDB()

	// Redis é opcional: sem ele o cache de locais vira no-op
	if err := database.InitRedis(); err != nil {
		log.Printf("⚠️  Redis indisponível, cache desativado: %v", err)
	}

	if err := seedDatabase(db); err != nil {
		log.Fatal("❌ Erro ao popular dados iniciais:", err)
	}

	if err := os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
		log.Fatal("❌ Erro ao criar diretório de uploads:", err)
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)

	// Serviços
	auditService := services.NewAuditService(db, logger)
	cacheService := services.NewCacheService(cfg.Redis.TTL, logger)
	groupService := services.NewContractGroupService(db, logger)
	importService := services.NewLocationImportService(db, logger)
	reportService := services.NewReportService(db, logger)
	notificationService := services.NewNotificationService(cfg, logger)

	scheduler := services.NewScheduler(auditService, reportService, cfg, logger)
	if err := scheduler.Start(); err != nil {
		log.Fatal("❌ Erro ao iniciar o agendador de tarefas:", err)
	}
	defer scheduler.Stop()

	// Handlers
	authAPI := api.NewAuthAPI(db, notificationService)
	userAPI := api.NewUserAPI(db)
	locationAPI := api.NewLocationAPI(db, cacheService)
	importAPI := api.NewImportAPI(db, importService, cacheService, auditService)
	groupAPI := api.NewContractGroupAPI(db, groupService, auditService, cacheService, notificationService)
	recordAPI := api.NewRecordAPI(db, auditService, cacheService, cfg.Uploads.Dir, logger)
	serviceAPI := api.NewServiceAPI(db)
	unitAPI := api.NewUnitAPI(db)
	goalAPI := api.NewGoalAPI(db)
	auditAPI := api.NewAuditLogAPI(auditService)
	reportAPI := api.NewReportAPI(reportService)

	auth := middleware.NewAuthMiddleware(db)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORS.AllowedOrigins) == 1 && cfg.CORS.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	corsConfig.AddAllowHeaders("Authorization")
	r.Use(cors.New(corsConfig))

	// Fotos anexadas aos registros
	r.Static("/uploads", cfg.Uploads.Dir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "success", "message": "pong"})
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/auth/login", authAPI.Login)
		apiGroup.POST("/auth/forgot-password", authAPI.ForgotPassword)
		apiGroup.POST("/auth/reset-password", authAPI.ResetPassword)
	}

	protected := apiGroup.Group("")
	protected.Use(auth.Protect())
	{
		protected.GET("/auth/me", authAPI.Me)

		protected.GET("/locations", locationAPI.GetLocations)
		protected.GET("/services", serviceAPI.GetServices)
		protected.GET("/units", unitAPI.GetUnits)
		protected.GET("/contract-groups", groupAPI.GetGroupNames)

		protected.GET("/records", recordAPI.GetRecords)
		protected.GET("/records/:id", recordAPI.GetRecord)
		protected.POST("/records", recordAPI.CreateRecord)
		protected.POST("/records/:id/photos", recordAPI.UploadPhotos)
	}

	admin := protected.Group("")
	admin.Use(auth.AdminOnly())
	{
		admin.GET("/users", userAPI.GetUsers)
		admin.GET("/users/:id", userAPI.GetUser)
		admin.POST("/users", userAPI.CreateUser)
		admin.PUT("/users/:id", userAPI.UpdateUser)
		admin.DELETE("/users/:id", userAPI.DeleteUser)

		admin.POST("/locations", locationAPI.CreateLocation)
		admin.PUT("/locations/:id", locationAPI.UpdateLocation)
		admin.DELETE("/locations/:id", locationAPI.DeleteLocation)
		admin.POST("/locations/import", importAPI.ImportLocations)

		admin.GET("/contract-configs", groupAPI.GetConfigs)
		admin.POST("/contract-configs", groupAPI.SaveConfigs)
		admin.PUT("/contract-groups/:name", groupAPI.RenameGroup)
		admin.DELETE("/contract-groups/:name", groupAPI.DeleteGroup)

		admin.PUT("/records/:id", recordAPI.UpdateRecord)
		admin.PUT("/records/:id/measurement", recordAPI.OverrideMeasurement)
		admin.DELETE("/records/:id", recordAPI.DeleteRecord)

		admin.POST("/services", serviceAPI.CreateService)
		admin.PUT("/services/:id", serviceAPI.UpdateService)
		admin.DELETE("/services/:id", serviceAPI.DeleteService)

		admin.POST("/units", unitAPI.CreateUnit)
		admin.PUT("/units/:id", unitAPI.UpdateUnit)
		admin.DELETE("/units/:id", unitAPI.DeleteUnit)

		admin.GET("/goals", goalAPI.GetGoals)
		admin.POST("/goals", goalAPI.SaveGoal)
		admin.PUT("/goals/:id", goalAPI.UpdateGoal)
		admin.DELETE("/goals/:id", goalAPI.DeleteGoal)

		admin.GET("/auditlog", auditAPI.GetAuditLogs)
		admin.POST("/auditlog", auditAPI.CreateAuditLog)

		admin.GET("/reports/performance-graph", reportAPI.GetPerformanceGraph)
		admin.GET("/reports/monthly", reportAPI.GetMonthlySummary)
		admin.GET("/reports/monthly/export", reportAPI.ExportMonthlySummary)
	}

	log.Printf("🚀 Servidor iniciado na porta %s", cfg.App.Port)
	if err := r.Run(":" + cfg.App.Port); err != nil {
		log.Fatal("❌ Erro ao iniciar o servidor:", err)
	}
}
