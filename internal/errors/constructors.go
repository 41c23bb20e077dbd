package errors

// Convenience constructors for the build error taxonomy.

// MalformedFrontMatter indicates a content file whose front-matter block has
// unbalanced delimiters or cannot be parsed as YAML.
func MalformedFrontMatter(path string, cause error) *BuildError {
	return &BuildError{
		Category: CategoryContent,
		Kind:     KindMalformedFrontMatter,
		Severity: SeverityFatal,
		Message:  "malformed front matter",
		Cause:    cause,
		Context:  ContextFields{"path": path},
	}
}

// InvalidDateInFilename indicates a filename carrying a date prefix that does
// not parse as a calendar date.
func InvalidDateInFilename(path, datePart string) *BuildError {
	return &BuildError{
		Category: CategoryContent,
		Kind:     KindInvalidDateInFilename,
		Severity: SeverityFatal,
		Message:  "invalid date in filename",
		Context:  ContextFields{"path": path, "date": datePart},
	}
}

// MissingPartial indicates a template including a partial that does not exist
// under the template root.
func MissingPartial(template, partial string) *BuildError {
	return &BuildError{
		Category: CategoryTemplate,
		Kind:     KindMissingPartial,
		Severity: SeverityFatal,
		Message:  "missing partial",
		Context:  ContextFields{"template": template, "partial": partial},
	}
}

// CyclicLayout indicates a layout that directly or transitively wraps itself.
func CyclicLayout(chain []string) *BuildError {
	return &BuildError{
		Category: CategoryTemplate,
		Kind:     KindCyclicLayout,
		Severity: SeverityFatal,
		Message:  "cyclic layout chain",
		Context:  ContextFields{"chain": chain},
	}
}

// CyclicDependency indicates an edge insertion that would make the dependency
// graph cyclic.
func CyclicDependency(artifact, input string) *BuildError {
	return &BuildError{
		Category: CategoryGraph,
		Kind:     KindCyclicDependency,
		Severity: SeverityFatal,
		Message:  "cyclic dependency",
		Context:  ContextFields{"artifact": artifact, "input": input},
	}
}

// DuplicatePermalink indicates two documents resolving to the same permalink.
// Both source paths are reported.
func DuplicatePermalink(permalink, firstPath, secondPath string) *BuildError {
	return &BuildError{
		Category: CategoryContent,
		Kind:     KindDuplicatePermalink,
		Severity: SeverityFatal,
		Message:  "duplicate permalink",
		Context: ContextFields{
			"permalink":   permalink,
			"first_path":  firstPath,
			"second_path": secondPath,
		},
	}
}

// WriteFailure indicates the output writer could not materialize an artifact.
func WriteFailure(path string, cause error) *BuildError {
	return &BuildError{
		Category: CategoryOutput,
		Kind:     KindWriteFailure,
		Severity: SeverityFatal,
		Message:  "write failure",
		Cause:    cause,
		Context:  ContextFields{"path": path},
	}
}

// UnresolvedVariable records a template variable that resolved to nothing.
// It is a warning: authors routinely omit optional fields.
func UnresolvedVariable(template, variable string) *BuildError {
	return &BuildError{
		Category: CategoryTemplate,
		Kind:     KindUnresolvedVariable,
		Severity: SeverityWarning,
		Message:  "unresolved template variable",
		Context:  ContextFields{"template": template, "variable": variable},
	}
}
