package notifsvc

import (
	"sync"

	"github.com/afyafund/afyafund/core"
)

// DummyService records notifications synchronously so tests can assert on
// fan-out without sleeping.
type DummyService struct {
	mu   sync.Mutex
	sent []core.Notification
}

var _ core.NotificationService = (*DummyService)(nil)

func NewDummyService() *DummyService {
	return &DummyService{}
}

func (svc *DummyService) Send(notifications ...*core.Notification) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, n := range notifications {
		svc.sent = append(svc.sent, *n)
	}
}

func (svc *DummyService) Sent() []core.Notification {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	sent := make([]core.Notification, len(svc.sent))
	copy(sent, svc.sent)
	return sent
}

func (svc *DummyService) Reset() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sent = nil
}
