package worker

import (
	"github.com/DossaniParadise/rm-tracker/internal/service"
)

// StartNotificationWorker registers notification handlers and returns a func
// that removes them again.
func StartNotificationWorker(notificationService *service.NotificationService) (stop func()) {
	if notificationService == nil {
		return func() {}
	}
	notificationService.RegisterHandlers()
	return notificationService.Close
}
