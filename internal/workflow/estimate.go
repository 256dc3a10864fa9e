package workflow

// EstimateLUTSize returns the lookup-table cell count for a configuration:
// the product of grid sizes over ranged parameters, or 1 when none are
// ranged. Pure; never triggers computation.
func EstimateLUTSize(cfg WorkflowConfig) int64 {
	total := int64(1)
	for _, p := range cfg.Params {
		if p.Mode == ModeRange {
			total *= int64(p.GridSize)
		}
	}
	return total
}
