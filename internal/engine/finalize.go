package engine

import (
	"strings"

	"go.uber.org/zap"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/audit"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/checkpoint"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/consent"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/memory"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/metrics"
)

// Finalize rejection reasons.
const (
	ReasonCheckpointFail  = "checkpoint_fail"
	ReasonConsentRequired = "consent_required"
)

// Guidance is the generated guidance being finalized.
type Guidance struct {
	Stance string `json:"stance"`
}

// FinalizeArgs describes a response about to be delivered.
type FinalizeArgs struct {
	Topic           string                      `json:"topic"`
	Guidance        *Guidance                   `json:"guidance,omitempty"`
	StoreMemory     bool                        `json:"store_memory"`
	AboutToStorePII bool                        `json:"about_to_store_pii"`
	UserSignals     checkpoint.UserSignals      `json:"user_signals"`
	SuggestedAction *checkpoint.SuggestedAction `json:"suggested_action,omitempty"`
	Tone            string                      `json:"tone,omitempty"`
}

// Result is the outcome of Finalize. Callers branch on OK and Reason;
// rejections are not errors.
type Result struct {
	OK         bool                 `json:"ok"`
	Reason     string               `json:"reason,omitempty"`
	Needed     *consent.Requirement `json:"needed,omitempty"`
	Stored     bool                 `json:"stored"`
	Checkpoint checkpoint.Result    `json:"checkpoint"`
	Entry      *memory.Entry        `json:"entry,omitempty"`
}

// Finalize runs the checkpoint, the consent gate and the memory write, in
// that order, stopping at the first rejection.
func (e *Engine) Finalize(args FinalizeArgs) Result {
	stance := ""
	if args.Guidance != nil {
		stance = strings.TrimSpace(args.Guidance.Stance)
	}
	persist := args.StoreMemory && stance != ""

	pii := args.AboutToStorePII
	if persist && !pii && e.scrub.Scrub(stance).HasPII() {
		e.log.Debug("finalize: guidance contains PII", zap.String("topic", args.Topic))
		pii = true
	}

	cp := e.Checkpoint.Run(checkpoint.Context{
		UserSignals:     args.UserSignals,
		SuggestedAction: args.SuggestedAction,
		Tone:            args.Tone,
		AboutToStorePII: pii,
		ConsentGated:    args.StoreMemory,
	})
	if !cp.Pass {
		metrics.FinalizeTotal.WithLabelValues(ReasonCheckpointFail).Inc()
		e.Audit.RecordSeverity("acf_finalize_fail", audit.SeverityBlock, map[string]any{
			"reason":   ReasonCheckpointFail,
			"topic":    args.Topic,
			"findings": len(cp.Findings),
		})
		return Result{Reason: ReasonCheckpointFail, Checkpoint: cp}
	}

	if args.StoreMemory && pii && !e.Consent.HasConsent(consent.ScopeMemory) {
		req := e.Consent.RequireConsent(consent.ScopeMemory, map[string]any{
			"topic": args.Topic,
			"pii":   true,
		})
		metrics.FinalizeTotal.WithLabelValues(ReasonConsentRequired).Inc()
		return Result{Reason: ReasonConsentRequired, Needed: &req, Checkpoint: cp}
	}

	res := Result{OK: true, Checkpoint: cp}
	if persist {
		weight := cp.Confidence
		entry, err := e.Memory.Upsert(memory.Input{
			Topic:   args.Topic,
			Kind:    memory.AdaptiveAnchor,
			Content: stance,
			Weight:  &weight,
			Source:  "acf_finalize",
			Context: map[string]any{"pii": pii, "tone": args.Tone},
		})
		if err != nil {
			metrics.MemoryPersistErrors.Inc()
			e.log.Error("finalize: memory write failed", zap.String("topic", args.Topic), zap.Error(err))
			e.Audit.RecordSeverity("acf_memory_error", audit.SeverityWarning, map[string]any{
				"topic": args.Topic,
				"error": err.Error(),
			})
		} else {
			res.Stored = true
			res.Entry = &entry
		}
	}

	metrics.FinalizeTotal.WithLabelValues("ok").Inc()
	e.Audit.Record("acf_finalize", map[string]any{
		"topic":      args.Topic,
		"stored":     res.Stored,
		"confidence": cp.Confidence,
	})
	e.Consent.DriftScanIfDue(e.driftOptions(args.Topic))
	return res
}
