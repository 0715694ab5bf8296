package otel

import (
	"context"
	"encoding/json"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/forgeflow/forgeflow/internal/port/messagequeue"
)

// Observer feeds the workflow counters from the event stream. Subscribing
// to the queue instead of instrumenting each service keeps the counting in
// one place and covers events produced by every replica.
type Observer struct {
	metrics *Metrics
	cancels []func()
}

// StartObserver subscribes to all workflow event subjects and increments
// the matching counters as events arrive. Call Stop to unsubscribe.
func StartObserver(ctx context.Context, queue messagequeue.Queue, m *Metrics) (*Observer, error) {
	o := &Observer{metrics: m}

	subs := map[string]messagequeue.Handler{
		messagequeue.SubjectProjectCreated:   o.onProjectCreated,
		messagequeue.SubjectAgentComplete:    o.onAgentComplete,
		messagequeue.SubjectAgentFailed:      o.onAgentFailed,
		messagequeue.SubjectFeaturesAdded:    o.onFeaturesAdded,
		messagequeue.SubjectFeatureComplete:  o.onFeatureComplete,
		messagequeue.SubjectFeatureRetry:     o.onFeatureRetry,
		messagequeue.SubjectFeatureSkipped:   o.onFeatureSkipped,
		messagequeue.SubjectApprovalRecorded: o.onApprovalRecorded,
		messagequeue.SubjectPhaseAdvanced:    o.onPhaseAdvanced,
	}

	for subject, handler := range subs {
		cancel, err := queue.Subscribe(ctx, subject, handler)
		if err != nil {
			o.Stop()
			return nil, err
		}
		o.cancels = append(o.cancels, cancel)
	}
	return o, nil
}

// Stop cancels all subscriptions.
func (o *Observer) Stop() {
	for _, cancel := range o.cancels {
		cancel()
	}
	o.cancels = nil
}

func (o *Observer) onProjectCreated(ctx context.Context, _ string, _ []byte) error {
	o.metrics.ProjectsCreated.Add(ctx, 1)
	return nil
}

func (o *Observer) onAgentComplete(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.AgentCompletePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	o.metrics.AgentsCompleted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", p.AgentName),
		attribute.Int("phase", p.PhaseNumber),
	))
	return nil
}

func (o *Observer) onAgentFailed(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.AgentFailedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	o.metrics.AgentsFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", p.AgentName),
		attribute.Int("phase", p.PhaseNumber),
	))
	return nil
}

func (o *Observer) onFeaturesAdded(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.FeaturesAddedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	o.metrics.FeaturesAdded.Add(ctx, int64(p.Count))
	return nil
}

func (o *Observer) onFeatureComplete(ctx context.Context, _ string, _ []byte) error {
	o.metrics.FeaturesCompleted.Add(ctx, 1)
	return nil
}

func (o *Observer) onFeatureRetry(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.FeatureRetryPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	o.metrics.FeaturesRetried.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("exhausted", p.MaxRetriesReached),
	))
	return nil
}

func (o *Observer) onFeatureSkipped(ctx context.Context, _ string, _ []byte) error {
	o.metrics.FeaturesSkipped.Add(ctx, 1)
	return nil
}

func (o *Observer) onApprovalRecorded(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.ApprovalRecordedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	o.metrics.ApprovalsRecorded.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("approved", p.Approved),
	))
	return nil
}

func (o *Observer) onPhaseAdvanced(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.PhaseAdvancedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	o.metrics.PhasesAdvanced.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", strconv.Itoa(p.Phase)),
	))
	return nil
}
