package migrations

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nti-labs/webhooks/config"
)

// ParseVersion parses a version string like "v3.14" or "3.14" and returns
// its major version.
func ParseVersion(versionStr string) (float64, error) {
	cleanVersion := strings.TrimPrefix(versionStr, "v")

	parts := strings.Split(cleanVersion, ".")
	if len(parts) == 0 {
		return 0, fmt.Errorf("invalid version format: %s", versionStr)
	}

	major, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid major version: %s", parts[0])
	}

	return major, nil
}

// GetCurrentCodeVersion returns the major version from config.VERSION.
func GetCurrentCodeVersion() (float64, error) {
	return ParseVersion(config.VERSION)
}
