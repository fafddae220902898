package optimization

import "fmt"

// ExitCondition is the tagged reason a minimization or line search
// terminated.
type ExitCondition int

const (
	None ExitCondition = iota
	InvalidValues
	ExceedIterations
	RelativePoints
	RelativeGradient
	LackOfProgress
	AbsoluteGradient
	WeakWolfeCriteria
	BoundTolerance
	StrongWolfeCriteria
	LackOfFunctionImprovement
	SufficientDecrease
)

var exitNames = [...]string{
	None:                      "none",
	InvalidValues:             "invalid-values",
	ExceedIterations:          "exceed-iterations",
	RelativePoints:            "relative-points",
	RelativeGradient:          "relative-gradient",
	LackOfProgress:            "lack-of-progress",
	AbsoluteGradient:          "absolute-gradient",
	WeakWolfeCriteria:         "weak-wolfe-criteria",
	BoundTolerance:            "bound-tolerance",
	StrongWolfeCriteria:       "strong-wolfe-criteria",
	LackOfFunctionImprovement: "lack-of-function-improvement",
	SufficientDecrease:        "sufficient-decrease",
}

func (c ExitCondition) String() string {
	if c >= 0 && int(c) < len(exitNames) {
		return exitNames[c]
	}
	return fmt.Sprintf("ExitCondition(%d)", int(c))
}

// MarshalText encodes the condition by name.
func (c ExitCondition) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a condition name produced by MarshalText.
func (c *ExitCondition) UnmarshalText(text []byte) error {
	parsed, err := ParseExitCondition(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseExitCondition returns the condition with the given name.
func ParseExitCondition(name string) (ExitCondition, error) {
	for i, n := range exitNames {
		if n == name {
			return ExitCondition(i), nil
		}
	}
	return None, NewErrorf(KindInvalidArgument, "unknown exit condition %q", name)
}
