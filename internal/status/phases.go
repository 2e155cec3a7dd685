// Package status tracks the progress of a discovery pass: its phase and
// the counters reported once the pass ends.
package status

import "fmt"

// Phase is the lifecycle phase of a discovery pass.
type Phase string

const (
	// PhaseNotStarted is the phase before the hypervisor connection is opened.
	PhaseNotStarted Phase = "NotStarted"
	// PhaseConnected means the connection is open and domains are not yet listed.
	PhaseConnected Phase = "Connected"
	// PhaseProcessing means domains are being mapped into the inventory.
	PhaseProcessing Phase = "Processing"
	// PhaseDone means every domain was processed and the inventory is complete.
	PhaseDone Phase = "Done"
	// PhaseFailed means the pass was aborted by a fatal error.
	PhaseFailed Phase = "Failed"
)

// Pass records the phase and counters of one discovery pass.
type Pass struct {
	Phase Phase
	// Reason holds the fatal error message once the pass has failed.
	Reason string

	// Domains is the number of domains listed by the hypervisor.
	Domains int
	// Matched is the number of domains that passed the filter.
	Matched int
	// Filtered is the number of domains skipped by the filter.
	Filtered int
	// FactFailures counts domains whose interface facts could not be read.
	FactFailures int
	// DuplicateHosts counts domains that mapped to an existing hostname.
	DuplicateHosts int
}

// NewPass returns a pass in PhaseNotStarted.
func NewPass() *Pass {
	return &Pass{Phase: PhaseNotStarted}
}

// TransitionToConnected is called once the hypervisor connection is open.
func (p *Pass) TransitionToConnected() error {
	if p.Phase != PhaseNotStarted {
		return fmt.Errorf("cannot transition to %s from phase %s", PhaseConnected, p.Phase)
	}
	p.Phase = PhaseConnected
	return nil
}

// TransitionToProcessing is called once the domain list is available.
func (p *Pass) TransitionToProcessing(domains int) error {
	if p.Phase != PhaseConnected {
		return fmt.Errorf("cannot transition to %s from phase %s", PhaseProcessing, p.Phase)
	}
	p.Phase = PhaseProcessing
	p.Domains = domains
	return nil
}

// TransitionToDone is called when every domain has been processed.
func (p *Pass) TransitionToDone() error {
	if p.Phase != PhaseProcessing {
		return fmt.Errorf("cannot transition to %s from phase %s", PhaseDone, p.Phase)
	}
	p.Phase = PhaseDone
	return nil
}

// TransitionToFailed records a fatal error. It can happen from any phase
// that is not terminal; a terminal pass keeps its phase.
func (p *Pass) TransitionToFailed(err error) {
	if IsTerminal(p.Phase) {
		return
	}
	p.Phase = PhaseFailed
	if err != nil {
		p.Reason = err.Error()
	}
}

// IsTerminal returns true if the phase is Done or Failed.
func IsTerminal(phase Phase) bool {
	return phase == PhaseDone || phase == PhaseFailed
}

// String summarizes the pass for logging.
func (p *Pass) String() string {
	return fmt.Sprintf("phase=%s domains=%d matched=%d filtered=%d fact_failures=%d duplicate_hosts=%d",
		p.Phase, p.Domains, p.Matched, p.Filtered, p.FactFailures, p.DuplicateHosts)
}
