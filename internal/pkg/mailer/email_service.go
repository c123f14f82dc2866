package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	NotifyDecision(ctx context.Context, claim entity.ClaimRecord, session *entity.Session) error
}

// Dialer is the part of gomail.Dialer the service needs.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer      Dialer
	senderEmail string
	senderName  string
	recipient   string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderName, recipient string, log logger.ILogger) IEmailService {
	return NewEmailServiceWithDialer(gomail.NewDialer(host, port, username, password), username, senderName, recipient, log)
}

func NewEmailServiceWithDialer(d Dialer, senderEmail, senderName, recipient string, log logger.ILogger) IEmailService {
	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		senderName:  senderName,
		recipient:   recipient,
		logger:      log,
	}
}

// NotifyDecision mails the decision summary of a finished run.
func (s *emailService) NotifyDecision(ctx context.Context, claim entity.ClaimRecord, session *entity.Session) error {
	if session == nil || session.Decision == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d := session.Decision
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", s.recipient)
	m.SetHeader("Subject", fmt.Sprintf("Claim %s: %s", claim.ClaimID, d.Decision))
	m.SetBody("text/html", DecisionBody(claim, session))

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("MAILER", "Failed to send decision notification", map[string]interface{}{
			"claim_id":   claim.ClaimID,
			"session_id": session.SessionID,
			"error":      err.Error(),
		})
		return err
	}

	s.logger.Info("MAILER", "Decision notification sent", map[string]interface{}{
		"claim_id":   claim.ClaimID,
		"session_id": session.SessionID,
		"recipient":  s.recipient,
	})
	return nil
}

// DecisionBody renders the HTML summary. All values are escaped.
func DecisionBody(claim entity.ClaimRecord, session *entity.Session) string {
	d := session.Decision
	color := "#C62828"
	if d.Decision == entity.DecisionApproved {
		color = "#2E7D32"
	}

	var indicators strings.Builder
	for _, ind := range d.FraudIndicators {
		fmt.Fprintf(&indicators, "<li>%s</li>", html.EscapeString(ind))
	}
	if indicators.Len() == 0 {
		indicators.WriteString("<li>None</li>")
	}

	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Claim %s</h2>
			<p>Patient: %s &middot; Policy: %s</p>
			<h1 style="color: %s;">%s</h1>
			<table>
				<tr><td>Approved amount</td><td>%s</td></tr>
				<tr><td>Remaining balance</td><td>%s</td></tr>
				<tr><td>Policy utilization</td><td>%.1f%%</td></tr>
				<tr><td>Fraud risk</td><td>%s</td></tr>
				<tr><td>Coverage</td><td>%s</td></tr>
			</table>
			<p>Fraud indicators:</p>
			<ul>%s</ul>
			<p>%s</p>
			<p style="color: #888;">Session %s, status %s, %d stages completed.</p>
		</div>
	`,
		html.EscapeString(claim.ClaimID),
		html.EscapeString(claim.PatientName),
		html.EscapeString(claim.PolicyNumber),
		color,
		html.EscapeString(string(d.Decision)),
		html.EscapeString(d.ApprovedAmount),
		html.EscapeString(d.RemainingBalance),
		d.PolicyUtilization,
		html.EscapeString(d.FraudRiskLevel),
		html.EscapeString(d.CoverageAssessment),
		indicators.String(),
		html.EscapeString(d.Rationale),
		html.EscapeString(session.SessionID),
		html.EscapeString(string(session.Status)),
		len(session.CompletedStages),
	)
}
