package singleinstance

const (
	DefaultPortStart = 49600
	DefaultPortEnd   = 49620

	minPort = 1024
	maxPort = 65535
)

// Ports is the inclusive loopback range the resident may own. The server binds
// Start; clients scan the whole range.
type Ports struct {
	Start int
	End   int
}

// DefaultPorts is the range used when nothing is configured.
func DefaultPorts() Ports { return Ports{Start: DefaultPortStart, End: DefaultPortEnd} }

// Normalize fills a zero bound from the defaults, swaps reversed bounds and
// clamps the range to unprivileged ports.
func (p Ports) Normalize() Ports {
	if p.Start == 0 {
		p.Start = DefaultPortStart
	}
	if p.End == 0 {
		p.End = DefaultPortEnd
	}
	if p.End < p.Start {
		p.Start, p.End = p.End, p.Start
	}
	return Ports{Start: max(p.Start, minPort), End: min(p.End, maxPort)}
}
