package services

import (
	"fmt"
	"log"
	"net/smtp"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"backend_crb/config"
)

// NotificationService envia notificações externas: e-mail de recuperação
// de senha via SMTP e alertas administrativos via Telegram para operações
// destrutivas. Ambos os canais são best-effort.
type NotificationService struct {
	Config *config.Config
	Logger *log.Logger

	bot *tgbotapi.BotAPI
}

// NewNotificationService cria um novo serviço de notificações
func NewNotificationService(cfg *config.Config, logger *log.Logger) *NotificationService {
	ns := &NotificationService{Config: cfg, Logger: logger}

	if cfg.Telegram.BotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			if logger != nil {
				logger.Printf("Telegram indisponível, alertas desativados: %v", err)
			}
		} else {
			ns.bot = bot
		}
	}

	return ns
}

// SendPasswordResetEmail envia o link de redefinição de senha
func (ns *NotificationService) SendPasswordResetEmail(to, token string) error {
	smtpCfg := ns.Config.SMTP
	if smtpCfg.User == "" {
		return fmt.Errorf("SMTP não configurado")
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", ns.Config.App.FrontendURL, token)

	from := smtpCfg.From
	if from == "" {
		from = smtpCfg.User
	}

	body := fmt.Sprintf(
		"From: \"CRB Serviços\" <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: Redefinição de senha - CRB Serviços\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"<p>Olá,</p>"+
			"<p>Você solicitou a redefinição da sua senha.</p>"+
			"<p>Clique abaixo para definir uma nova senha (válido por 30 minutos):</p>"+
			"<p><a href=\"%s\" style=\"color:#352f91;font-weight:bold;\">Redefinir senha</a></p>"+
			"<p>Se você não solicitou, ignore este e-mail.</p>",
		from, to, resetLink)

	addr := fmt.Sprintf("%s:%d", smtpCfg.Host, smtpCfg.Port)
	auth := smtp.PlainAuth("", smtpCfg.User, smtpCfg.Password, smtpCfg.Host)

	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(body)); err != nil {
		return fmt.Errorf("falha ao enviar e-mail de recuperação: %w", err)
	}

	if ns.Logger != nil {
		ns.Logger.Printf("E-mail de recuperação de senha enviado para %s", to)
	}
	return nil
}

// NotifyGroupDeleted alerta os administradores via Telegram que um grupo
// de contrato foi excluído. Falha de envio é apenas registrada.
func (ns *NotificationService) NotifyGroupDeleted(adminName string, result *DeleteResult) {
	if ns.bot == nil || ns.Config.Telegram.ChatID == 0 {
		return
	}

	text := fmt.Sprintf("⚠️ Grupo de contrato '%s' excluído por %s (%d locais removidos, %d usuários atualizados)",
		result.Name, adminName, result.LocationsDeleted, result.UsersUpdated)

	msg := tgbotapi.NewMessage(ns.Config.Telegram.ChatID, text)
	if _, err := ns.bot.Send(msg); err != nil && ns.Logger != nil {
		ns.Logger.Printf("Falha ao enviar alerta Telegram: %v", err)
	}
}
