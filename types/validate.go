package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Range is a state variable's allowedValueRange. Min, Max and Step keep the
// wire spelling from the SCPD; empty Step means any value within bounds.
type Range struct {
	Min  string
	Max  string
	Step string
}

// ValueError reports a value rejected by an allowedValueList or
// allowedValueRange constraint.
type ValueError struct {
	Datatype string
	Value    string
	Reason   string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("value %q not allowed for type %q: %s", e.Value, e.Datatype, e.Reason)
}

// Check validates an encoded wire value against the constraints declared on
// its state variable. Membership in allowed is case-sensitive, per the UPnP
// device architecture. A nil rng means no range constraint.
func Check(datatype, encoded string, allowed []string, rng *Range) error {
	if len(allowed) > 0 {
		for _, a := range allowed {
			if encoded == a {
				return nil
			}
		}
		return &ValueError{
			Datatype: datatype,
			Value:    encoded,
			Reason:   fmt.Sprintf("not in allowed list %v", allowed),
		}
	}

	if rng == nil {
		return nil
	}

	if _, ok := intLimits[datatype]; ok {
		return checkIntRange(datatype, encoded, rng)
	}
	if _, ok := uintLimits[datatype]; ok {
		return checkIntRange(datatype, encoded, rng)
	}
	switch datatype {
	case "r4", "r8", "float", "number", "fixed.14.4":
		return checkFloatRange(datatype, encoded, rng)
	}
	// Ranges on non-numeric datatypes are vendor noise; ignore them.
	return nil
}

func checkIntRange(datatype, encoded string, rng *Range) error {
	v, err := strconv.ParseInt(encoded, 10, 64)
	if err != nil {
		// ui8 values above MaxInt64 cannot step-check in int64 space;
		// fall back to the float path for those.
		return checkFloatRange(datatype, encoded, rng)
	}
	min, hasMin, err := parseBound(datatype, rng.Min)
	if err != nil {
		return err
	}
	max, hasMax, err := parseBound(datatype, rng.Max)
	if err != nil {
		return err
	}
	if hasMin && v < int64(min) {
		return &ValueError{Datatype: datatype, Value: encoded, Reason: fmt.Sprintf("below minimum %s", rng.Min)}
	}
	if hasMax && v > int64(max) {
		return &ValueError{Datatype: datatype, Value: encoded, Reason: fmt.Sprintf("above maximum %s", rng.Max)}
	}
	if hasMin && rng.Step != "" {
		step, err := strconv.ParseInt(strings.TrimSpace(rng.Step), 10, 64)
		if err != nil || step <= 0 {
			return &ValueError{Datatype: datatype, Value: encoded, Reason: fmt.Sprintf("bad step %q in allowedValueRange", rng.Step)}
		}
		if (v-int64(min))%step != 0 {
			return &ValueError{Datatype: datatype, Value: encoded, Reason: fmt.Sprintf("not a multiple of step %s from %s", rng.Step, rng.Min)}
		}
	}
	return nil
}

func checkFloatRange(datatype, encoded string, rng *Range) error {
	v, err := strconv.ParseFloat(encoded, 64)
	if err != nil {
		return &ValueError{Datatype: datatype, Value: encoded, Reason: "not numeric"}
	}
	min, hasMin, err := parseBound(datatype, rng.Min)
	if err != nil {
		return err
	}
	max, hasMax, err := parseBound(datatype, rng.Max)
	if err != nil {
		return err
	}
	if hasMin && v < min {
		return &ValueError{Datatype: datatype, Value: encoded, Reason: fmt.Sprintf("below minimum %s", rng.Min)}
	}
	if hasMax && v > max {
		return &ValueError{Datatype: datatype, Value: encoded, Reason: fmt.Sprintf("above maximum %s", rng.Max)}
	}
	if hasMin && rng.Step != "" {
		step, err := strconv.ParseFloat(strings.TrimSpace(rng.Step), 64)
		if err != nil || step <= 0 {
			return &ValueError{Datatype: datatype, Value: encoded, Reason: fmt.Sprintf("bad step %q in allowedValueRange", rng.Step)}
		}
		if rem := math.Mod(v-min, step); rem != 0 {
			return &ValueError{Datatype: datatype, Value: encoded, Reason: fmt.Sprintf("not a multiple of step %s from %s", rng.Step, rng.Min)}
		}
	}
	return nil
}

func parseBound(datatype, bound string) (float64, bool, error) {
	bound = strings.TrimSpace(bound)
	if bound == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(bound, 64)
	if err != nil {
		return 0, false, &ValueError{Datatype: datatype, Value: bound, Reason: "bad bound in allowedValueRange"}
	}
	return f, true, nil
}
