package manifest

import "fmt"

// Merge combines two manifests where overlay takes precedence over base:
//   - version: must agree if both declare it (non-zero)
//   - options: field by field, set overlay fields win
//   - dependencies: merged by name, an overlay entry replaces the base entry
func Merge(base, overlay *Manifest) (*Manifest, error) {
	if base == nil {
		return overlay, nil
	}
	if overlay == nil {
		return base, nil
	}

	result := &Manifest{}

	if err := mergeVersion(base.Version, overlay.Version, &result.Version); err != nil {
		return nil, err
	}
	result.Options = mergeOptions(base.Options, overlay.Options)
	result.Dependencies = mergeDependencies(base.Dependencies, overlay.Dependencies)

	return result, nil
}

// MergeAll merges manifests in order (lowest precedence first).
func MergeAll(manifests []*Manifest) (*Manifest, error) {
	if len(manifests) == 0 {
		return nil, fmt.Errorf("no manifests to merge")
	}

	result := manifests[0]
	for i := 1; i < len(manifests); i++ {
		var err error
		result, err = Merge(result, manifests[i])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func mergeVersion(base, overlay int, out *int) error {
	switch {
	case base == 0 && overlay == 0:
		*out = 0 // validation reports it
	case base == 0:
		*out = overlay
	case overlay == 0:
		*out = base
	case base == overlay:
		*out = base
	default:
		return fmt.Errorf("manifest version mismatch: one layer declares version %d, another declares version %d", base, overlay)
	}
	return nil
}

func mergeOptions(base, overlay Options) Options {
	result := base
	if overlay.StopOnFirstError != nil {
		result.StopOnFirstError = overlay.StopOnFirstError
	}
	if overlay.Parallelism != 0 {
		result.Parallelism = overlay.Parallelism
	}
	if overlay.Timeout != "" {
		result.Timeout = overlay.Timeout
	}
	if overlay.Retries != nil {
		result.Retries = overlay.Retries
	}
	if overlay.StagingDir != "" {
		result.StagingDir = overlay.StagingDir
	}
	return result
}

func mergeDependencies(base, overlay []Dependency) []Dependency {
	if len(base) == 0 {
		return overlay
	}
	if len(overlay) == 0 {
		return base
	}

	overlayNames := make(map[string]bool, len(overlay))
	for _, d := range overlay {
		overlayNames[d.Name] = true
	}

	var result []Dependency
	for _, d := range base {
		if !overlayNames[d.Name] {
			result = append(result, d)
		}
	}
	return append(result, overlay...)
}
