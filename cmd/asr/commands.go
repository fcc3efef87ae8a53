package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/dispatch"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/engine"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/execstatus"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/findings"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/gate"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/metrics"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/models"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/notifier"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/output"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/policy"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/resolver"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/scheduler"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "asr",
		Short: "Automated security response pipeline for Security Hub findings",
	}
	root.AddCommand(
		newVersionCmd(),
		newNormalizeCmd(),
		newResolveCmd(),
		newGateCmd(),
		newScheduleCmd(),
		newDispatchCmd(),
		newStatusCmd(),
		newNotifyCmd(),
		newRunCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

// ---------------------------------------------------------------------------
// Component wiring
// ---------------------------------------------------------------------------

// components holds the fully wired pipeline pieces for one CLI invocation.
type components struct {
	provider   *common.DefaultAWSClientProvider
	session    *common.Session
	cfg        *policy.PolicyConfig
	normalizer *findings.Normalizer
	resolver   *resolver.Resolver
	gate       *gate.Gate
	scheduler  *scheduler.Scheduler
	dispatcher *dispatch.Dispatcher
	evaluator  *execstatus.Evaluator
	notifier   *notifier.Notifier
	engine     *engine.DefaultEngine
	log        *zap.Logger
}

// buildComponents loads AWS credentials and the policy file and wires every
// pipeline step. The clients live for the duration of this invocation;
// nothing is cached at package level.
func buildComponents(ctx context.Context, policyPath string) (*components, error) {
	log, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	if policyPath == "" {
		policyPath = os.Getenv("ASR_POLICY_FILE")
	}
	var cfg *policy.PolicyConfig
	if policyPath != "" {
		cfg, err = policy.LoadPolicy(policyPath)
		if err != nil {
			return nil, fmt.Errorf("load policy %q: %w", policyPath, err)
		}
	}

	provider := common.NewDefaultAWSClientProvider()
	session, err := provider.LoadDefault(ctx)
	if err != nil {
		return nil, err
	}

	checker := &resolver.CrossAccountDocumentChecker{Provider: provider, Session: session}

	// Deployment parameters come from the policy file, with environment
	// overrides for containerized step invocation.
	var topicARN, schedTable, waitTime string
	if cfg != nil {
		topicARN = cfg.TopicARN
		schedTable = cfg.SchedulingTable
		waitTime = cfg.WaitTimeSeconds
	}
	if v := os.Getenv("ASR_TOPIC_ARN"); v != "" {
		topicARN = v
	}
	if v := os.Getenv("ASR_SCHEDULING_TABLE"); v != "" {
		schedTable = v
	}
	if v := os.Getenv("ASR_WAIT_TIME_SECONDS"); v != "" {
		waitTime = v
	}

	sink := metrics.NewSink(session.Clients.CloudWatch, session.Clients.SNS, "")
	nt := notifier.NewNotifier(session.Clients.SecurityHub, session.Clients.SNS, topicARN, nil, log)

	var sched *scheduler.Scheduler
	if schedTable != "" {
		sched = scheduler.NewScheduler(session.Clients.DynamoDB, session.Clients.SFN, schedTable, waitTime, log)
	}

	c := &components{
		provider:   provider,
		session:    session,
		cfg:        cfg,
		normalizer: findings.NewNormalizer(findings.ParameterShortNames{SSM: session.Clients.SSM}, log),
		resolver:   resolver.NewResolver(session.Clients.SSM, checker, log),
		gate:       gate.NewGate(cfg, checker, session.AccountID, session.Region, log),
		scheduler:  sched,
		dispatcher: dispatch.NewDispatcher(provider, session, log),
		evaluator:  execstatus.NewEvaluator(provider, session, sink, log),
		notifier:   nt,
		log:        log,
	}
	c.engine = engine.NewDefaultEngine(
		c.normalizer, c.resolver, c.gate, c.scheduler,
		c.dispatcher, c.evaluator, c.notifier, log,
	)
	return c, nil
}

// ---------------------------------------------------------------------------
// Step commands
//
// Each subcommand is one independently invocable pipeline step: it reads a
// JSON event, performs its step, and emits a JSON result. The governing
// workflow chains them; `asr run` chains them locally for testing.
// ---------------------------------------------------------------------------

func newNormalizeCmd() *cobra.Command {
	var input, policyPath string
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Parse a raw Security Hub finding into canonical form",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readEvent(input)
			if err != nil {
				return err
			}
			c, err := buildComponents(cmd.Context(), policyPath)
			if err != nil {
				return err
			}
			finding, _ := extractFinding(raw)
			f, err := c.normalizer.Normalize(cmd.Context(), finding)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), f)
		},
	}
	addCommonFlags(cmd, &input, &policyPath)
	return cmd
}

func newResolveCmd() *cobra.Command {
	var input, policyPath string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a finding to a remediation document and role",
		RunE: func(cmd *cobra.Command, args []string) error {
			var f models.Finding
			if err := readEventInto(input, &f); err != nil {
				return err
			}
			c, err := buildComponents(cmd.Context(), policyPath)
			if err != nil {
				return err
			}
			resolution, err := c.resolver.Resolve(cmd.Context(), &f)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resolution)
		},
	}
	addCommonFlags(cmd, &input, &policyPath)
	return cmd
}

func newGateCmd() *cobra.Command {
	var input, policyPath, eventType string
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Evaluate approval policy for a finding",
		RunE: func(cmd *cobra.Command, args []string) error {
			var f models.Finding
			if err := readEventInto(input, &f); err != nil {
				return err
			}
			c, err := buildComponents(cmd.Context(), policyPath)
			if err != nil {
				return err
			}
			decision := c.gate.Evaluate(cmd.Context(), &f, eventType)
			return printJSON(cmd.OutOrStdout(), decision)
		},
	}
	addCommonFlags(cmd, &input, &policyPath)
	cmd.Flags().StringVar(&eventType, "event-type", "", "Originating event detail-type")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	var input, policyPath, account, region, taskToken string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Plan a rate-limited remediation slot for an account/region",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := readEvent(input)
			if err != nil {
				return err
			}
			c, err := buildComponents(cmd.Context(), policyPath)
			if err != nil {
				return err
			}
			if c.scheduler == nil {
				return fmt.Errorf("no scheduling table configured in policy")
			}
			planned, err := c.scheduler.Schedule(cmd.Context(), account, region, details, taskToken)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), models.PlannedRemediation{
				PlannedTimestamp: planned,
				Details:          details,
			})
		},
	}
	addCommonFlags(cmd, &input, &policyPath)
	cmd.Flags().StringVar(&account, "account", "", "Target AWS account ID")
	cmd.Flags().StringVar(&region, "region", "", "Target AWS region")
	cmd.Flags().StringVar(&taskToken, "task-token", "", "Workflow task token to acknowledge")
	return cmd
}

func newDispatchCmd() *cobra.Command {
	var input, policyPath string
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Start the remediation document execution in the member account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req models.RemediationRequest
			if err := readEventInto(input, &req); err != nil {
				return err
			}
			c, err := buildComponents(cmd.Context(), policyPath)
			if err != nil {
				return err
			}
			result, err := c.dispatcher.Dispatch(cmd.Context(), &req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	addCommonFlags(cmd, &input, &policyPath)
	return cmd
}

func newStatusCmd() *cobra.Command {
	var policyPath, executionID, account, region, control string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Poll and interpret a remediation execution's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildComponents(cmd.Context(), policyPath)
			if err != nil {
				return err
			}
			result, err := c.evaluator.Evaluate(cmd.Context(), executionID, account, region, control)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&policyPath, "policy", "", "Path to the policy yaml file")
	cmd.Flags().StringVar(&executionID, "execution-id", "", "Automation execution ID")
	cmd.Flags().StringVar(&account, "account", "", "Member account ID")
	cmd.Flags().StringVar(&region, "region", "", "Member region")
	cmd.Flags().StringVar(&control, "control", "", "Control ID (for outcome metrics)")
	return cmd
}

func newNotifyCmd() *cobra.Command {
	var input, policyPath string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Publish a remediation outcome to downstream consumers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var n notifier.Notification
			if err := readEventInto(input, &n); err != nil {
				return err
			}
			c, err := buildComponents(cmd.Context(), policyPath)
			if err != nil {
				return err
			}
			c.notifier.Notify(cmd.Context(), n)
			return printJSON(cmd.OutOrStdout(), n)
		},
	}
	addCommonFlags(cmd, &input, &policyPath)
	return cmd
}

func newRunCmd() *cobra.Command {
	var input, policyPath, eventType, taskToken, format string
	var noPoll, showLog bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive one finding through the full remediation pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readEvent(input)
			if err != nil {
				return err
			}
			c, err := buildComponents(cmd.Context(), policyPath)
			if err != nil {
				return err
			}
			finding, detectedType := extractFinding(raw)
			if eventType == "" {
				eventType = detectedType
			}
			result, err := c.engine.RunFinding(cmd.Context(), finding, engine.RunOptions{
				EventType: eventType,
				TaskToken: taskToken,
				NoPoll:    noPoll,
			})
			if result != nil {
				switch format {
				case "text":
					output.RenderSummary(cmd.OutOrStdout(), result, output.SummaryOptions{
						IncludeLog: showLog,
					})
				default:
					if perr := printJSON(cmd.OutOrStdout(), result); perr != nil && err == nil {
						err = perr
					}
				}
			}
			return err
		},
	}
	addCommonFlags(cmd, &input, &policyPath)
	cmd.Flags().StringVar(&eventType, "event-type", "", "Override the event detail-type")
	cmd.Flags().StringVar(&taskToken, "task-token", "", "Workflow task token (enables scheduling)")
	cmd.Flags().BoolVar(&noPoll, "no-poll", false, "Return after dispatch without waiting for completion")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or text")
	cmd.Flags().BoolVar(&showLog, "show-log", false, "Include the execution log in text output")
	return cmd
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func addCommonFlags(cmd *cobra.Command, input, policyPath *string) {
	cmd.Flags().StringVar(input, "input", "-", `Input event path ("-" for stdin)`)
	cmd.Flags().StringVar(policyPath, "policy", "", "Path to the policy yaml file")
}

// readEvent reads a JSON object from path, or stdin when path is "-".
func readEvent(path string) (map[string]any, error) {
	var event map[string]any
	if err := readEventInto(path, &event); err != nil {
		return nil, err
	}
	return event, nil
}

func readEventInto(path string, v any) error {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read event: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse event JSON: %w", err)
	}
	return nil
}

// extractFinding unwraps an EventBridge envelope down to the first finding
// object and its detail-type. A bare finding object passes through as-is.
func extractFinding(event map[string]any) (map[string]any, string) {
	eventType, _ := event["detail-type"].(string)
	detail, ok := event["detail"].(map[string]any)
	if !ok {
		return event, eventType
	}
	list, ok := detail["findings"].([]any)
	if !ok || len(list) == 0 {
		return event, eventType
	}
	if finding, ok := list[0].(map[string]any); ok {
		return finding, eventType
	}
	return event, eventType
}

// printJSON writes v as indented JSON to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
