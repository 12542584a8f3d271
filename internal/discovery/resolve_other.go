//go:build !darwin

package discovery

// Resolve picks a probe device path from the by-id directory dir.
func Resolve(dir, serial string) (string, error) {
	if dir == "" {
		dir = DefaultDir
	}

	return Select(dir, serial)
}
