package asa

// State 连接生命周期状态
type State int

const (
	StateDisconnected State = iota
	StateTransportEstablished
	StatePromptKnown
	StatePrivileged
	StatePagingDisabled
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateTransportEstablished:
		return "transport_established"
	case StatePromptKnown:
		return "prompt_known"
	case StatePrivileged:
		return "privileged"
	case StatePagingDisabled:
		return "paging_disabled"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
