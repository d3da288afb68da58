// internal/app/features/family/notify.go
package family

import (
	"context"

	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/app/system/mailer"
	"github.com/dalemusser/recipehub/internal/domain/models"
)

// MailNotifier sends invite notifications through the SES mailer.
type MailNotifier struct {
	Mailer *mailer.Mailer
}

func (n MailNotifier) NotifyInvite(ctx context.Context, invitee models.User, inviter authz.Actor, g models.FamilyGroup) error {
	if !n.Mailer.Enabled() {
		return nil
	}
	return n.Mailer.Send(ctx, n.Mailer.FamilyInvite(invitee.Email, invitee.FullName, inviter.Name, g.Name))
}
