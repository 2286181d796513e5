package services

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"backend_crb/config"
)

// Scheduler agenda as tarefas periódicas do sistema: limpeza do log de
// auditoria e o resumo mensal de desempenho.
type Scheduler struct {
	cron   *cron.Cron
	audit  *AuditService
	report *ReportService
	cfg    *config.Config
	logger *log.Logger
}

// NewScheduler cria o agendador com as tarefas registradas
func NewScheduler(audit *AuditService, report *ReportService, cfg *config.Config, logger *log.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		audit:  audit,
		report: report,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registra e inicia as tarefas periódicas
func (s *Scheduler) Start() error {
	// Limpeza diária do log de auditoria, de madrugada
	if _, err := s.cron.AddFunc("0 3 * * *", func() {
		if _, err := s.audit.CleanupOldLogs(s.cfg.Audit.RetentionDays); err != nil {
			s.logger.Printf("Falha na limpeza do log de auditoria: %v", err)
		}
	}); err != nil {
		return err
	}

	// Resumo de desempenho do mês anterior, no primeiro dia de cada mês
	if _, err := s.cron.AddFunc("0 6 1 * *", func() {
		month := time.Now().AddDate(0, -1, 0).Format("2006-01")
		rows, err := s.report.MonthlySummary(month)
		if err != nil {
			s.logger.Printf("Falha no resumo mensal de %s: %v", month, err)
			return
		}
		s.logger.Printf("Resumo mensal de %s gerado: %d linhas", month, len(rows))
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Println("✅ Agendador de tarefas iniciado")
	return nil
}

// Stop interrompe o agendador aguardando tarefas em execução
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
