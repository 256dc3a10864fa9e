package workflow

import (
	"fmt"
	"math"
)

// Severity grades a validation issue. Errors block a run; warnings do not.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	default:
		return "warning"
	}
}

// ValidationIssue is one finding from Validate. Field names the offending
// parameter or config section.
type ValidationIssue struct {
	Severity Severity
	Field    string
	Message  string
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Field, i.Message)
}

// HasErrors reports whether any issue is of error severity.
func HasErrors(issues []ValidationIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks a configuration and returns its issues in a deterministic
// order: parameters in config order, then sensor, then method-level checks.
// An empty result means the config is valid. Validate is pure.
func Validate(cfg WorkflowConfig) []ValidationIssue {
	var issues []ValidationIssue

	if len(cfg.Params) == 0 {
		issues = append(issues, ValidationIssue{SeverityError, "params", "at least one parameter is required"})
	}

	for _, p := range cfg.Params {
		issues = append(issues, validateParameter(p)...)
	}

	issues = append(issues, validateSensor(cfg)...)

	if cfg.Method == MethodLUT && len(cfg.RangedParams()) == 0 {
		issues = append(issues, ValidationIssue{
			SeverityWarning, "method",
			"LUT method with no ranged parameters degenerates to a single-cell table",
		})
	}

	if estimate := EstimateLUTSize(cfg); estimate > LargeLUTThreshold {
		issues = append(issues, ValidationIssue{
			SeverityWarning, "params",
			fmt.Sprintf("estimated LUT size %d exceeds %d cells and may cause memory pressure", estimate, LargeLUTThreshold),
		})
	}

	return issues
}

func validateParameter(p ParameterSpec) []ValidationIssue {
	var issues []ValidationIssue

	if p.Name == "" {
		issues = append(issues, ValidationIssue{SeverityError, "params", "parameter name must not be empty"})
		return issues
	}

	switch p.Mode {
	case ModeFixed:
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			issues = append(issues, ValidationIssue{SeverityError, p.Name, "fixed value must be finite"})
		}
	case ModeRange:
		if math.IsNaN(p.Min) || math.IsInf(p.Min, 0) || math.IsNaN(p.Max) || math.IsInf(p.Max, 0) {
			issues = append(issues, ValidationIssue{SeverityError, p.Name, "range bounds must be finite"})
			return issues
		}
		if p.Min >= p.Max {
			issues = append(issues, ValidationIssue{
				SeverityError, p.Name,
				fmt.Sprintf("minimum (%g) must be less than maximum (%g)", p.Min, p.Max),
			})
		}
		if p.GridSize < MinGridSize || p.GridSize > MaxGridSize {
			issues = append(issues, ValidationIssue{
				SeverityError, p.Name,
				fmt.Sprintf("grid size %d outside [%d,%d]", p.GridSize, MinGridSize, MaxGridSize),
			})
		}
		if limits, ok := physicalLimits[p.Name]; ok {
			if p.Min < limits[0] || p.Max > limits[1] {
				issues = append(issues, ValidationIssue{
					SeverityError, p.Name,
					fmt.Sprintf("range [%g,%g] outside physical limits [%g,%g]", p.Min, p.Max, limits[0], limits[1]),
				})
			}
		}
	default:
		issues = append(issues, ValidationIssue{SeverityError, p.Name, fmt.Sprintf("unknown parameter mode %d", int(p.Mode))})
	}

	return issues
}

func validateSensor(cfg WorkflowConfig) []ValidationIssue {
	var issues []ValidationIssue
	s := cfg.Sensor

	if len(s.Bands) == 0 {
		issues = append(issues, ValidationIssue{SeverityError, "sensor", "band selection must not be empty"})
		return issues
	}
	if len(s.Bands) < 3 {
		issues = append(issues, ValidationIssue{SeverityError, "sensor", "at least 3 bands are required for inversion"})
	}
	if len(s.Bands) > 20 {
		issues = append(issues, ValidationIssue{SeverityError, "sensor", fmt.Sprintf("too many bands selected: %d (maximum 20)", len(s.Bands))})
	}

	seen := make(map[float64]string, len(s.Bands))
	for _, band := range s.Bands {
		if band.Wavelength <= 0 {
			issues = append(issues, ValidationIssue{
				SeverityError, "sensor",
				fmt.Sprintf("band %s has non-positive wavelength %g", band.Name, band.Wavelength),
			})
		}
		if prev, dup := seen[band.Wavelength]; dup {
			issues = append(issues, ValidationIssue{
				SeverityError, "sensor",
				fmt.Sprintf("bands %s and %s share wavelength %g", prev, band.Name, band.Wavelength),
			})
		}
		seen[band.Wavelength] = band.Name
	}

	return issues
}
