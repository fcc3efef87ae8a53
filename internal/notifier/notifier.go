// Package notifier reports remediation outcomes: it advances the finding's
// Security Hub workflow state and fans the structured outcome out to the
// notification topic and any configured ticketing sinks.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/securityhub"
	shtypes "github.com/aws/aws-sdk-go-v2/service/securityhub/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/models"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/providers/aws/common"
)

// Notification is the structured outcome message published downstream.
type Notification struct {
	FindingID      string   `json:"finding_id"`
	AccountID      string   `json:"account_id"`
	Region         string   `json:"region"`
	Standard       string   `json:"standard"`
	ControlID      string   `json:"control_id"`
	Status         string   `json:"status"`
	Message        string   `json:"message"`
	AffectedObject string   `json:"affected_object,omitempty"`
	LogData        []string `json:"log_data,omitempty"`
	TicketURL      string   `json:"ticket_url,omitempty"`
}

// TicketResult is the outcome of a ticket-creation call.
type TicketResult struct {
	TicketURL      string
	OK             bool
	ResponseCode   int
	ResponseReason string
}

// TicketSink creates a tracking ticket for a remediation outcome. Jira and
// ServiceNow integrations satisfy this interface; this core treats them as
// opaque collaborators and ships none itself.
type TicketSink interface {
	Name() string
	CreateTicket(ctx context.Context, n Notification) (TicketResult, error)
}

// Notifier delivers outcome notifications. Every downstream delivery is
// best-effort except the Security Hub workflow update, whose failure is
// returned to the caller.
type Notifier struct {
	securityHub common.SecurityHubClient
	sns         common.SNSClient
	topicARN    string
	tickets     []TicketSink
	log         *zap.Logger
}

// NewNotifier wires a Notifier. topicARN may be empty to skip topic
// publication; tickets may be empty.
func NewNotifier(hub common.SecurityHubClient, snsClient common.SNSClient, topicARN string, tickets []TicketSink, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{
		securityHub: hub,
		sns:         snsClient,
		topicARN:    topicARN,
		tickets:     tickets,
		log:         log,
	}
}

// UpdateWorkflowStatus sets the originating finding's workflow state in
// Security Hub with an explanatory note, and mirrors the new state onto f.
func (n *Notifier) UpdateWorkflowStatus(ctx context.Context, f *models.Finding, status models.WorkflowStatus, note string) error {
	productARN, _ := f.Raw["ProductArn"].(string)
	if productARN == "" {
		return fmt.Errorf("finding %s has no ProductArn; cannot update workflow", f.ID)
	}

	input := &securityhub.BatchUpdateFindingsInput{
		FindingIdentifiers: []shtypes.AwsSecurityFindingIdentifier{{
			Id:         aws.String(f.ID),
			ProductArn: aws.String(productARN),
		}},
		Workflow: &shtypes.WorkflowUpdate{
			Status: shtypes.WorkflowStatus(status),
		},
	}
	if note != "" {
		input.Note = &shtypes.NoteUpdate{
			Text:      aws.String(note),
			UpdatedBy: aws.String("sechub-asr"),
		}
	}

	if _, err := n.securityHub.BatchUpdateFindings(ctx, input); err != nil {
		return fmt.Errorf("update workflow status for %s: %w", f.ID, err)
	}
	f.WorkflowStatus = status
	return nil
}

// Notify publishes the outcome to the notification topic and ticketing
// sinks. Delivery failures are logged and swallowed; a lost notification
// must never fail a completed remediation.
func (n *Notifier) Notify(ctx context.Context, notification Notification) {
	for _, sink := range n.tickets {
		result, err := sink.CreateTicket(ctx, notification)
		if err != nil {
			n.log.Warn("ticket creation failed",
				zap.String("sink", sink.Name()), zap.Error(err))
			continue
		}
		if !result.OK {
			n.log.Warn("ticket creation rejected",
				zap.String("sink", sink.Name()),
				zap.Int("response_code", result.ResponseCode),
				zap.String("reason", result.ResponseReason))
			continue
		}
		// First successful ticket is attached to the topic message.
		if notification.TicketURL == "" {
			notification.TicketURL = result.TicketURL
		}
	}

	if n.topicARN == "" {
		return
	}
	body, err := json.Marshal(notification)
	if err != nil {
		n.log.Warn("marshal notification", zap.Error(err))
		return
	}
	_, err = n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(fmt.Sprintf("Remediation %s: %s", notification.Status, notification.ControlID)),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		n.log.Warn("publish notification", zap.Error(err))
	}
}
