package notifsvc

import (
	"fmt"

	"github.com/afyafund/afyafund/core"
)

// consoleService prints notifications to the app logger; for local dev.
type consoleService struct {
	logger core.Logger
}

var _ core.NotificationService = (*consoleService)(nil)

func NewConsoleService(logger core.Logger) core.NotificationService {
	return &consoleService{logger: logger}
}

func (svc *consoleService) Send(notifications ...*core.Notification) {
	for _, n := range notifications {
		n := n
		go func() {
			svc.logger.Info(fmt.Sprintf("notification [%s] to user=%q email=%q: %s - %s",
				n.Type, n.UserID, n.Email, n.Title, n.Message))
		}()
	}
}
