package ai

import "errors"

// NameSource yields a class table, or an error when it has none.
type NameSource func() (map[int]string, error)

// ResolveNames returns the table of the first source that yields one. When all
// sources fail the table is empty, so every class resolves to Class_{id}, and
// the failures are returned joined.
func ResolveNames(sources ...NameSource) (map[int]string, error) {
	var errs []error
	for _, source := range sources {
		names, err := source()
		if err == nil && len(names) > 0 {
			return names, nil
		}
		if err == nil {
			err = errors.New("empty class table")
		}
		errs = append(errs, err)
	}
	return map[int]string{}, errors.Join(errs...)
}
