package upnpc

import (
	"context"
	"fmt"

	"grimm.is/upnpc/session"
	"grimm.is/upnpc/soap"
	"grimm.is/upnpc/types"
)

// Invoke performs the action with the given named arguments. The argument
// set must match the declared in-arguments exactly: a missing or unknown
// name, or a value the schema rejects, fails before anything is sent.
//
// The result maps each declared out-argument name to its decoded value;
// ArgsOut gives the declared order. Per-call session options override the
// device-level policy for this invocation only.
func (a *Action) Invoke(ctx context.Context, args map[string]any, opts ...session.Option) (map[string]any, error) {
	if a.service.client == nil {
		return nil, &ValidationError{Action: a.Name, Reason: "service has no control URL"}
	}

	in, err := a.marshalArgs(args)
	if err != nil {
		return nil, err
	}

	dev := a.service.device
	pol := dev.policy.Resolve(opts...)

	// The device's pooled client serves the common case. Any per-call
	// override gets a dedicated client so transport-level state (digest
	// sessions, TLS material, timeouts) cannot leak between callers.
	hc := dev.hc
	if len(opts) > 0 {
		hc, err = pol.HTTPClient()
		if err != nil {
			return nil, err
		}
		defer hc.CloseIdleConnections()
	}

	out, err := a.service.client.Call(ctx, a.Name, in, hc, pol)
	if err != nil {
		return nil, err
	}

	return a.unmarshalArgs(out)
}

// marshalArgs validates and encodes the caller's arguments in declaration
// order.
func (a *Action) marshalArgs(args map[string]any) ([]soap.Arg, error) {
	declared := make(map[string]bool, len(a.ArgsIn))
	in := make([]soap.Arg, 0, len(a.ArgsIn))

	for _, def := range a.ArgsIn {
		declared[def.Name] = true
		v, ok := args[def.Name]
		if !ok {
			return nil, &ValidationError{Action: a.Name, Arg: def.Name, Reason: "required argument missing"}
		}
		encoded, err := types.Encode(def.Datatype, v)
		if err != nil {
			return nil, &ValidationError{Action: a.Name, Arg: def.Name, Reason: err.Error(), Err: err}
		}
		if err := types.Check(def.Datatype, encoded, def.AllowedValues, def.AllowedRange); err != nil {
			return nil, &ValidationError{Action: a.Name, Arg: def.Name, Reason: err.Error(), Err: err}
		}
		in = append(in, soap.Arg{Name: def.Name, Value: encoded})
	}

	for name := range args {
		if !declared[name] {
			return nil, &ValidationError{Action: a.Name, Arg: name, Reason: "not an argument of this action"}
		}
	}
	return in, nil
}

// unmarshalArgs decodes the response elements against the declared
// out-arguments. Every declared output must be present; extra elements
// from chatty devices are ignored.
func (a *Action) unmarshalArgs(out []soap.Arg) (map[string]any, error) {
	byName := make(map[string]string, len(out))
	for _, arg := range out {
		if _, dup := byName[arg.Name]; !dup {
			byName[arg.Name] = arg.Value
		}
	}

	result := make(map[string]any, len(a.ArgsOut))
	for _, def := range a.ArgsOut {
		raw, ok := byName[def.Name]
		if !ok {
			return nil, &soap.ProtocolError{
				Action: a.Name,
				Reason: fmt.Sprintf("response missing output argument %q", def.Name),
			}
		}
		decoded, err := types.Decode(def.Datatype, raw)
		if err != nil {
			return nil, &soap.ProtocolError{
				Action: a.Name,
				Reason: fmt.Sprintf("output argument %q: %v", def.Name, err),
			}
		}
		result[def.Name] = decoded
	}
	return result, nil
}

// Service returns the service this action belongs to.
func (a *Action) Service() *Service {
	return a.service
}

func (a *Action) String() string {
	return fmt.Sprintf("upnpc.Action{%s.%s}", a.service.ServiceID, a.Name)
}
