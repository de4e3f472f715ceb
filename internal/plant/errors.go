package plant

import "fmt"

// TopologyError reports a malformed connection graph. Raised by the network
// check before any numeric work.
type TopologyError struct {
	Component string
	Msg       string
}

func (e *TopologyError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("topology: %s: %s", e.Component, e.Msg)
	}
	return "topology: " + e.Msg
}

// ParameterCountError reports a mismatch between the number of equations the
// parametrisation produces and the number of system variables. Raised before
// the first Jacobian assembly.
type ParameterCountError struct {
	Required int
	Supplied int
}

func (e *ParameterCountError) Error() string {
	if e.Supplied > e.Required {
		return fmt.Sprintf("parametrisation over-determined: %d equations required, %d supplied", e.Required, e.Supplied)
	}
	return fmt.Sprintf("parametrisation under-determined: %d equations required, %d supplied", e.Required, e.Supplied)
}

// FluidPropagationError reports a connection whose composition cannot be
// derived from any user specified anchor.
type FluidPropagationError struct {
	Conn string
}

func (e *FluidPropagationError) Error() string {
	return fmt.Sprintf("fluid propagation: no composition anchor reachable for connection %s", e.Conn)
}

// WarmStartError reports an incompatible prior state (differing fluid set).
type WarmStartError struct {
	Want []string
	Got  []string
}

func (e *WarmStartError) Error() string {
	return fmt.Sprintf("warm start: fluid set %v does not match prior state %v", e.Want, e.Got)
}
