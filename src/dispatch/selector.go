package dispatch

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/coe-labs/coe-agent/src/data"
	"github.com/coe-labs/coe-agent/src/logging"
	"github.com/coe-labs/coe-agent/src/session"
	"github.com/coe-labs/coe-agent/src/toolkit"
)

// FlowClassCandidate is the aggregate Stage A option standing in for "run
// one of the registered flows". Flows are individuated in Stage B only.
const FlowClassCandidate = "run_registered_flow"

// CapabilitySource narrows the capability registry to what selection needs.
type CapabilitySource interface {
	Eligible(context, group string) []toolkit.Capability
	Lookup(name string) (toolkit.Capability, bool)
}

// FlowSource narrows the flow catalog to what selection needs.
type FlowSource interface {
	Eligible(ctx context.Context, callerContext, group string) ([]data.Flow, error)
	ByName(ctx context.Context, name string) (*data.Flow, error)
}

// Selector runs the two-stage candidate decision.
type Selector struct {
	caps     CapabilitySource
	flows    FlowSource
	primary  Strategy
	fallback Strategy
	args     ArgumentInferrer
}

// NewSelector wires the selection dependencies. fallback may be nil to
// disallow degrading from the primary strategy; args may be nil to skip
// argument inference entirely.
func NewSelector(caps CapabilitySource, flows FlowSource, primary, fallback Strategy, args ArgumentInferrer) *Selector {
	return &Selector{caps: caps, flows: flows, primary: primary, fallback: fallback, args: args}
}

// Select decides which candidate should serve the utterance. An explicit
// caller choice always wins when it names an eligible candidate. An empty
// eligible set yields ActionNone, never an error.
func (s *Selector) Select(ctx context.Context, utterance, callerContext, group string, explicit *Choice) (*Decision, error) {
	caps := s.caps.Eligible(callerContext, group)

	eligibleFlows, err := s.flows.Eligible(ctx, callerContext, group)
	if err != nil {
		log.Printf("dispatch: flow catalog unavailable, selecting among capabilities only: %v", err)
		eligibleFlows = nil
	}

	if explicit != nil && explicit.Name != "" {
		return s.selectExplicit(caps, eligibleFlows, explicit), nil
	}

	if len(caps) == 0 && len(eligibleFlows) == 0 {
		return &Decision{Action: ActionNone, Reason: "no eligible candidates"}, nil
	}

	// Stage A: capability vs. the flow class.
	stageA := make([]Candidate, 0, len(caps)+1)
	for _, cap := range caps {
		stageA = append(stageA, Candidate{Kind: session.KindCapability, Name: cap.Name, Description: cap.Description})
	}
	if len(eligibleFlows) > 0 {
		stageA = append(stageA, Candidate{
			Kind:        session.KindFlow,
			Name:        FlowClassCandidate,
			Description: flowClassDescription(eligibleFlows),
		})
	}

	pick, source := s.decide(ctx, utterance, stageA)
	if pick == nil {
		return &Decision{Action: ActionNone, Reason: "no candidate selected"}, nil
	}

	if pick.Name == FlowClassCandidate {
		return s.selectFlow(ctx, utterance, eligibleFlows, source)
	}

	cap, ok := s.caps.Lookup(pick.Name)
	if !ok {
		return &Decision{Action: ActionNone, Reason: "selected capability disappeared"}, nil
	}
	return s.capabilityDecision(ctx, utterance, cap, pick.Reason, source), nil
}

func (s *Selector) selectExplicit(caps []toolkit.Capability, eligibleFlows []data.Flow, explicit *Choice) *Decision {
	for _, cap := range caps {
		if cap.Name == explicit.Name {
			return &Decision{
				Action:         ActionCapability,
				Kind:           session.KindCapability,
				Name:           cap.Name,
				Arguments:      explicit.Arguments,
				ArgumentsKnown: true,
				Reason:         "caller requested this capability",
				Forced:         true,
				Source:         "explicit",
			}
		}
	}
	for _, flow := range eligibleFlows {
		if flow.Name == explicit.Name {
			return &Decision{
				Action:         ActionFlow,
				Kind:           session.KindFlow,
				Name:           flow.Name,
				Arguments:      explicit.Arguments,
				ArgumentsKnown: true,
				Reason:         "caller requested this flow",
				Forced:         true,
				Source:         "explicit",
			}
		}
	}
	return &Decision{
		Action: ActionNone,
		Reason: fmt.Sprintf("requested candidate %q is not eligible here", explicit.Name),
	}
}

// selectFlow is Stage B: individuate one flow by description.
func (s *Selector) selectFlow(ctx context.Context, utterance string, eligibleFlows []data.Flow, source string) (*Decision, error) {
	candidates := make([]Candidate, 0, len(eligibleFlows))
	for _, flow := range eligibleFlows {
		candidates = append(candidates, Candidate{Kind: session.KindFlow, Name: flow.Name, Description: flow.Description})
	}

	pick, pickSource := s.decide(ctx, utterance, candidates)
	if pick == nil {
		return &Decision{Action: ActionNone, Reason: "no flow selected"}, nil
	}
	if pickSource != "" {
		source = pickSource
	}

	return &Decision{
		Action:         ActionFlow,
		Kind:           session.KindFlow,
		Name:           pick.Name,
		Arguments:      map[string]any{"input": utterance},
		ArgumentsKnown: true,
		Reason:         pick.Reason,
		Source:         source,
	}, nil
}

func (s *Selector) capabilityDecision(ctx context.Context, utterance string, cap toolkit.Capability, reason, source string) *Decision {
	d := &Decision{
		Action: ActionCapability,
		Kind:   session.KindCapability,
		Name:   cap.Name,
		Reason: reason,
		Source: source,
	}
	if s.args == nil {
		return d
	}
	args, err := s.args.Infer(ctx, utterance, cap)
	if err != nil {
		// Selected, but arguments unknown. Never abort the selection.
		log.Printf("dispatch: argument inference for %s failed: %v", cap.Name, err)
		return d
	}
	d.Arguments = args
	d.ArgumentsKnown = true
	return d
}

// decide runs the primary strategy and degrades to the fallback when the
// primary errors out or declines and a fallback is configured.
func (s *Selector) decide(ctx context.Context, utterance string, candidates []Candidate) (*Pick, string) {
	pick, err := s.primary.Pick(ctx, utterance, candidates)
	if err != nil {
		if logging.IsTimeout(err) {
			log.Printf("dispatch: %s strategy timed out: %v", s.primary.Name(), err)
		} else {
			log.Printf("dispatch: %s strategy failed: %v", s.primary.Name(), err)
		}
		pick = nil
	}
	if pick != nil {
		return pick, s.primary.Name()
	}
	if s.fallback == nil {
		return nil, ""
	}
	pick, err = s.fallback.Pick(ctx, utterance, candidates)
	if err != nil || pick == nil {
		return nil, ""
	}
	return pick, s.fallback.Name()
}

func flowClassDescription(eligibleFlows []data.Flow) string {
	var parts []string
	for _, flow := range eligibleFlows {
		desc := strings.TrimSpace(flow.Description)
		if desc == "" {
			desc = flow.Name
		}
		parts = append(parts, desc)
	}
	return "등록된 워크플로(flow) 중 하나를 실행합니다. 처리 가능한 작업: " + strings.Join(parts, " / ")
}
