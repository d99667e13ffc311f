package relay

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/odanieltavares/whatpro-manager/internal/constants"
	"github.com/odanieltavares/whatpro-manager/internal/models"
)

// PlatformNotifier surfaces quarantine events to agents as private notes
// on the originating conversation. Everything here is best-effort; the
// job is already in the DLQ and a notification failure must not matter.
type PlatformNotifier struct {
	resolver ConfigResolver
	platform PlatformFactory
	logger   *logrus.Logger
}

func NewPlatformNotifier(resolver ConfigResolver, platform PlatformFactory, logger *logrus.Logger) *PlatformNotifier {
	return &PlatformNotifier{resolver: resolver, platform: platform, logger: logger}
}

func (n *PlatformNotifier) NotifyQuarantine(ctx context.Context, job *models.Job, cause string) {
	if job.ConversationID == 0 {
		return
	}
	instance, err := n.resolver.InstanceByID(ctx, job.InstanceID)
	if err != nil {
		n.logger.WithError(err).WithField("instanceId", job.InstanceID).Debug("Quarantine notice skipped, instance unresolved")
		return
	}

	note := fmt.Sprintf("%s message could not be delivered after %d attempts: %s",
		constants.SystemNoteMarker, job.Attempts, cause)
	client := n.platform(instance.Chatwoot)
	if err := client.CreatePrivateNote(ctx, instance.Chatwoot.AccountID, job.ConversationID, note); err != nil {
		n.logger.WithError(err).WithField("conversationId", job.ConversationID).Debug("Quarantine notice failed")
	}
}
