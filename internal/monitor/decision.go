package monitor

// Decision is the outcome of evaluating a fetched record against the
// feed's baseline.
type Decision string

const (
	// DecisionFirstRun means no baseline exists yet; notify and seed it.
	DecisionFirstRun Decision = "first_run"
	// DecisionSignificant means the record crossed the feed's threshold.
	DecisionSignificant Decision = "significant"
	// DecisionInsignificant means the record changed below threshold, or
	// not at all.
	DecisionInsignificant Decision = "insignificant"
	// DecisionSuppressed means a notification was warranted but a policy
	// gate (one per calendar day, etc) held it back.
	DecisionSuppressed Decision = "suppressed"
)

// Notifies reports whether the decision triggers a dispatch.
func (d Decision) Notifies() bool {
	return d == DecisionFirstRun || d == DecisionSignificant
}

func (d Decision) String() string { return string(d) }
