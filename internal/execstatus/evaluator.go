// Package execstatus polls automation execution state and interprets the
// raw engine metadata into a normalized evaluation result.
package execstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/models"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/providers/aws/common"
)

const (
	// affectedObjectPlaceholder is the engine's literal placeholder for a
	// step that produced no output. It is rewritten for display only.
	affectedObjectPlaceholder = "No output available yet because the step is not successfully executed"
	affectedObjectRewrite     = "See Automation Execution output for details"

	unknownValue = "UNKNOWN"
)

// ErrInvalidExecutionID marks an execution ID that does not match the
// automation engine's identifier format. Non-retryable.
var ErrInvalidExecutionID = errors.New("invalid execution id")

var executionIDPattern = regexp.MustCompile(
	`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// MetricsSink receives remediation outcome metrics. Implementations are
// best-effort; the evaluator swallows their failures.
type MetricsSink interface {
	RemediationOutcome(ctx context.Context, accountID, controlID, status string) error
}

// Evaluator fetches and interprets automation execution status. Each
// Evaluate call re-derives the full record from the engine; nothing is
// cached between polls.
type Evaluator struct {
	provider common.AWSClientProvider
	session  *common.Session
	metrics  MetricsSink
	log      *zap.Logger
}

// NewEvaluator wires an Evaluator to the admin session. metrics may be nil.
func NewEvaluator(provider common.AWSClientProvider, session *common.Session, metrics MetricsSink, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{provider: provider, session: session, metrics: metrics, log: log}
}

// Evaluate polls the execution in the member account and interprets the
// result. controlID is carried along for outcome metrics only.
func (e *Evaluator) Evaluate(ctx context.Context, executionID, accountID, region, controlID string) (*models.EvaluationResult, error) {
	if !executionIDPattern.MatchString(executionID) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidExecutionID, executionID)
	}

	clients, err := e.provider.AssumeRole(ctx, e.session, common.MemberRoleARN(accountID), region)
	if err != nil {
		return nil, fmt.Errorf("assume member role in %s: %w", accountID, err)
	}

	record, err := fetchRecord(ctx, clients.SSM, executionID)
	if err != nil {
		return nil, err
	}

	result := Interpret(record)

	if result.Status == models.ExecSuccess && e.metrics != nil {
		// Telemetry must never fail the evaluation itself.
		if merr := e.metrics.RemediationOutcome(ctx, accountID, controlID, result.RemediationStatus); merr != nil {
			e.log.Warn("outcome metric emission failed", zap.Error(merr))
		}
	}

	return result, nil
}

// fetchRecord retrieves one poll's view of the execution.
func fetchRecord(ctx context.Context, client common.SSMClient, executionID string) (*models.ExecutionRecord, error) {
	out, err := client.GetAutomationExecution(ctx, &ssm.GetAutomationExecutionInput{
		AutomationExecutionId: aws.String(executionID),
	})
	if err != nil {
		return nil, fmt.Errorf("get automation execution %s: %w", executionID, err)
	}
	exec := out.AutomationExecution
	if exec == nil {
		return nil, fmt.Errorf("get automation execution %s: empty response", executionID)
	}

	return &models.ExecutionRecord{
		ExecutionID:    executionID,
		Status:         models.ExecutionStatus(exec.AutomationExecutionStatus),
		Outputs:        exec.Outputs,
		FailureMessage: aws.ToString(exec.FailureMessage),
	}, nil
}

// Interpret maps a raw execution record onto an EvaluationResult. It is a
// pure function: the same record always yields the same result.
//
// Non-terminal executions produce a "running" result and no extraction;
// the caller re-polls later. Terminal executions get the full extraction:
// affected object, structured response, normalized status, message, and
// log lines.
func Interpret(record *models.ExecutionRecord) *models.EvaluationResult {
	if !record.Status.IsTerminal() {
		return &models.EvaluationResult{
			Status:            record.Status,
			RemediationStatus: "running",
			Message:           "Waiting for completion",
			AffectedObject:    "",
			LogData:           []string{},
		}
	}

	response := extractResponse(record.Outputs)

	result := &models.EvaluationResult{
		Status:         record.Status,
		AffectedObject: extractAffectedObject(record.Outputs),
		Response:       response,
		LogData:        extractLogData(record.Outputs, record.FailureMessage),
	}

	if record.Status == models.ExecSuccess {
		result.RemediationStatus = responseStatus(response)
	} else {
		result.RemediationStatus = string(record.Status)
	}

	result.Message = responseMessage(response, result.RemediationStatus)
	return result
}

// extractAffectedObject reads the ParseInput.AffectedObject output. A JSON
// value is canonicalized; a bare string passes through; absence yields the
// UNKNOWN literal. The engine's no-output placeholder is rewritten to a
// readable pointer at the execution log.
func extractAffectedObject(outputs map[string][]string) string {
	vals, ok := outputs["ParseInput.AffectedObject"]
	if !ok || len(vals) == 0 {
		return unknownValue
	}
	raw := vals[0]
	if raw == affectedObjectPlaceholder {
		return affectedObjectRewrite
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return raw
	}
	switch v := decoded.(type) {
	case string:
		return v
	default:
		canonical, err := json.Marshal(decoded)
		if err != nil {
			return raw
		}
		return string(canonical)
	}
}

// extractResponse locates the remediation response payload:
// Remediation.Output first, VerifyRemediation.Output second, and the whole
// outputs map serialized as a last resort. List values are authoritative at
// index 0 and JSON-decoded; anything that does not decode to an object is
// wrapped as {"message": <raw>}.
func extractResponse(outputs map[string][]string) map[string]any {
	for _, key := range []string{"Remediation.Output", "VerifyRemediation.Output"} {
		vals, ok := outputs[key]
		if !ok || len(vals) == 0 {
			continue
		}
		return decodeResponseValue(vals[0])
	}

	serialized, err := json.Marshal(outputs)
	if err != nil {
		serialized = []byte("{}")
	}
	return map[string]any{"message": string(serialized)}
}

func decodeResponseValue(raw string) map[string]any {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return map[string]any{"message": raw}
	}
	return decoded
}

// responseStatus digs the runbook-reported status out of the response,
// preferring the child-runbook invocation shape (Payload.response.status)
// over a top-level status key.
func responseStatus(response map[string]any) string {
	if status, ok := nestedString(response, "Payload", "response", "status"); ok {
		return status
	}
	if status, ok := response["status"].(string); ok {
		return status
	}
	return unknownValue
}

// responseMessage mirrors responseStatus's precedence for the human-readable
// message, with a generic fallback naming the derived status.
func responseMessage(response map[string]any, remediationStatus string) string {
	if msg, ok := nestedString(response, "Payload", "response", "message"); ok {
		return msg
	}
	if msg, ok := response["message"].(string); ok {
		return msg
	}
	return fmt.Sprintf("Remediation status: %s - please verify remediation", remediationStatus)
}

// extractLogData splits the ExecutionLog output into lines and appends the
// engine's failure message when present.
func extractLogData(outputs map[string][]string, failureMessage string) []string {
	var lines []string
	if vals, ok := outputs["ExecutionLog"]; ok && len(vals) > 0 && vals[0] != "" {
		lines = strings.Split(vals[0], "\n")
	}
	if failureMessage != "" {
		lines = append(lines, failureMessage)
	}
	return lines
}

// nestedString walks keys through nested maps and returns the string leaf.
func nestedString(m map[string]any, keys ...string) (string, bool) {
	current := any(m)
	for i, key := range keys {
		node, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = node[key]
		if !ok {
			return "", false
		}
		if i == len(keys)-1 {
			s, ok := current.(string)
			return s, ok
		}
	}
	return "", false
}
