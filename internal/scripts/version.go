package scripts

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// APIVersion is the host API version scripts are written against.
const APIVersion = "1.0.0"

// CompareVersions compares two version strings semantically.
// Returns:
// - -1 if v1 < v2
// - 0 if v1 == v2
// - 1 if v1 > v2
// - error if either version string is invalid
func CompareVersions(v1, v2 string) (int, error) {
	// Strip leading 'v' if present (common in version strings)
	v1 = strings.TrimPrefix(v1, "v")
	v2 = strings.TrimPrefix(v2, "v")

	version1, err := semver.NewVersion(v1)
	if err != nil {
		return 0, fmt.Errorf("invalid version %s: %w", v1, err)
	}

	version2, err := semver.NewVersion(v2)
	if err != nil {
		return 0, fmt.Errorf("invalid version %s: %w", v2, err)
	}

	return version1.Compare(version2), nil
}

// IsValidVersion checks if a version string is valid semantic version.
func IsValidVersion(version string) bool {
	// Strip leading 'v' if present
	version = strings.TrimPrefix(version, "v")
	_, err := semver.NewVersion(version)
	return err == nil
}

// ValidateAPIVersion checks whether a script written against the given
// API version can run on this host: the major version must match the
// host's, and the script must not require a newer API than the host
// provides.
func ValidateAPIVersion(scriptAPIVersion string) error {
	host, err := semver.NewVersion(strings.TrimPrefix(APIVersion, "v"))
	if err != nil {
		return fmt.Errorf("invalid host API version %s: %w", APIVersion, err)
	}

	required, err := semver.NewVersion(strings.TrimPrefix(scriptAPIVersion, "v"))
	if err != nil {
		return fmt.Errorf("invalid api_version %s: %w", scriptAPIVersion, err)
	}

	if required.Major() != host.Major() {
		return fmt.Errorf("script requires API version %s, but this host provides %s", scriptAPIVersion, APIVersion)
	}
	if required.GreaterThan(host) {
		return fmt.Errorf("script requires API version %s, newer than the host's %s", scriptAPIVersion, APIVersion)
	}
	return nil
}
