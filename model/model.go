package model

// Failure describes a file whose patches were rejected or could not be
// written.
type Failure struct {
	Path   string
	Stage  string
	Reason string
}

// Check is the --check report for one file.
type Check struct {
	Path    string
	Format  string
	// Grammar names the source parser used, if any.
	Grammar string
	Balance string
	// Valid is true when the file passes verification for its format.
	Valid bool
	Error string
}

// Summary holds the results of an operation for display.
type Summary struct {
	Patched   []string
	Unchanged []string
	Failed    []Failure
	// Diff is the unified diff of a dry run.
	Diff    string
	Checks  []Check
	Message string
}

// OK reports whether nothing failed.
func (s Summary) OK() bool {
	if len(s.Failed) > 0 {
		return false
	}
	for _, c := range s.Checks {
		if !c.Valid {
			return false
		}
	}
	return true
}
