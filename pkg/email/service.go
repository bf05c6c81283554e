// pkg/email/service.go
package email

import "corretor_backend/pkg/config"

var GlobalEmailService *EmailService

func InitEmailService(cfg config.EmailConfig) error {
	service, err := NewEmailService(cfg.ResendAPIKey, cfg.From, cfg.NotifyTo)
	if err != nil {
		return err
	}
	GlobalEmailService = service
	return nil
}
