package service

import (
	"fmt"

	"github.com/bivex/payment-recovery/internal/domain/entity"
)

// NotificationContent is the rendered copy for one dunning stage
type NotificationContent struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// ContentParams parameterizes the fixed per-stage copy
type ContentParams struct {
	MemberName    string
	AmountDisplay string
	Reason        string // human-readable failure reason, initial stage only
}

// ContentFor selects the notification copy for a dunning stage
func ContentFor(stage entity.DunningStage, p ContentParams) NotificationContent {
	switch stage {
	case entity.StageInitialFailure:
		return NotificationContent{
			Subject: "We couldn't process your membership payment",
			TextBody: fmt.Sprintf(
				"Hi %s,\n\nYour membership payment of %s could not be processed because %s. "+
					"We will automatically retry the charge over the next few days. "+
					"To avoid any interruption, please check your payment method.\n",
				p.MemberName, p.AmountDisplay, p.Reason),
			HTMLBody: fmt.Sprintf(
				"<p>Hi %s,</p><p>Your membership payment of <strong>%s</strong> could not be processed because %s. "+
					"We will automatically retry the charge over the next few days. "+
					"To avoid any interruption, please check your payment method.</p>",
				p.MemberName, p.AmountDisplay, p.Reason),
		}
	case entity.StageFirstReminder:
		return NotificationContent{
			Subject: "Reminder: your membership payment is still outstanding",
			TextBody: fmt.Sprintf(
				"Hi %s,\n\nWe still haven't been able to collect your membership payment of %s. "+
					"Please update your payment method so we can keep your membership active.\n",
				p.MemberName, p.AmountDisplay),
			HTMLBody: fmt.Sprintf(
				"<p>Hi %s,</p><p>We still haven't been able to collect your membership payment of <strong>%s</strong>. "+
					"Please update your payment method so we can keep your membership active.</p>",
				p.MemberName, p.AmountDisplay),
		}
	case entity.StageSecondReminder:
		return NotificationContent{
			Subject: "Second reminder: membership payment outstanding",
			TextBody: fmt.Sprintf(
				"Hi %s,\n\nThis is a second reminder that your membership payment of %s is outstanding. "+
					"Please update your payment details as soon as possible.\n",
				p.MemberName, p.AmountDisplay),
			HTMLBody: fmt.Sprintf(
				"<p>Hi %s,</p><p>This is a second reminder that your membership payment of <strong>%s</strong> is outstanding. "+
					"Please update your payment details as soon as possible.</p>",
				p.MemberName, p.AmountDisplay),
		}
	case entity.StageFinalNotice:
		return NotificationContent{
			Subject: "Final notice: your membership will be canceled",
			TextBody: fmt.Sprintf(
				"Hi %s,\n\nDespite several reminders, your membership payment of %s remains unpaid. "+
					"Unless payment is received within 7 days, your membership will be canceled.\n",
				p.MemberName, p.AmountDisplay),
			HTMLBody: fmt.Sprintf(
				"<p>Hi %s,</p><p>Despite several reminders, your membership payment of <strong>%s</strong> remains unpaid. "+
					"Unless payment is received within 7 days, your membership will be canceled.</p>",
				p.MemberName, p.AmountDisplay),
		}
	case entity.StageSubscriptionCanceled:
		return NotificationContent{
			Subject: "Your membership has been canceled",
			TextBody: fmt.Sprintf(
				"Hi %s,\n\nYour membership has been canceled because the outstanding payment of %s could not be collected. "+
					"You are welcome to rejoin at any time.\n",
				p.MemberName, p.AmountDisplay),
			HTMLBody: fmt.Sprintf(
				"<p>Hi %s,</p><p>Your membership has been canceled because the outstanding payment of <strong>%s</strong> could not be collected. "+
					"You are welcome to rejoin at any time.</p>",
				p.MemberName, p.AmountDisplay),
		}
	default:
		return NotificationContent{
			Subject:  "Membership payment update",
			TextBody: fmt.Sprintf("Hi %s,\n\nThere is an update regarding your membership payment of %s.\n", p.MemberName, p.AmountDisplay),
			HTMLBody: fmt.Sprintf("<p>Hi %s,</p><p>There is an update regarding your membership payment of <strong>%s</strong>.</p>", p.MemberName, p.AmountDisplay),
		}
	}
}
