package wordlist

// ValidateLists performs all validation checks on the lists.
func ValidateLists(lists *Lists) []Issue {
	if lists == nil || (len(lists.Words) == 0 && len(lists.URLs) == 0) {
		return []Issue{{
			Type:        "empty_lists",
			Description: "Prohibited lists are empty or could not be loaded",
			Location:    -1,
		}}
	}

	validators := []Validator{
		NewFieldValidator(),
		NewDuplicateValidator(),
		NewHostValidator(),
	}

	var issues []Issue
	for _, validator := range validators {
		issues = append(issues, validator.Validate(lists)...)
	}

	return issues
}
