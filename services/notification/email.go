// Package notifsvc implements user notification delivery.
package notifsvc

import (
	"net/mail"

	"github.com/afyafund/afyafund/core"
)

// emailService delivers notifications over email. Notifications without a
// known address are skipped; a separate in-app channel is expected to pick
// them up from the notification feed.
type emailService struct {
	mailSvc core.EmailService
}

var _ core.NotificationService = (*emailService)(nil)

func NewEmailService(mailSvc core.EmailService) core.NotificationService {
	return &emailService{mailSvc: mailSvc}
}

func (svc *emailService) Send(notifications ...*core.Notification) {
	messages := make([]*core.EmailMessage, 0, len(notifications))
	for _, n := range notifications {
		if n.Email == "" {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:      []mail.Address{{Address: n.Email}},
			Subject: n.Title,
			BodyStr: n.Message,
		})
	}
	svc.mailSvc.SendMessages(messages...)
}
