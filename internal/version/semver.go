package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// UpdateType classifies how urgently a client must update.
type UpdateType string

const (
	UpdateNone        UpdateType = "none"
	UpdateOptional    UpdateType = "optional"
	UpdateRecommended UpdateType = "recommended"
	UpdateCritical    UpdateType = "critical"
)

var ErrInvalidVersion = errors.New("invalid version")

var versionPattern = regexp.MustCompile(`^\d+(\.\d+){0,2}$`)

// Version is a major.minor.patch triple.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Valid reports whether s is one to three dot-separated non-negative integers.
func Valid(s string) bool {
	return versionPattern.MatchString(strings.TrimSpace(s))
}

// Parse reads "1", "1.2" or "1.2.3"; missing components are zero.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if !versionPattern.MatchString(s) {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	var parts [3]int
	for i, p := range strings.Split(s, ".") {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		parts[i] = n
	}
	return Version{Major: parts[0], Minor: parts[1], Patch: parts[2]}, nil
}

// Compare returns -1, 0 or 1 comparing a to b from major down to patch.
func Compare(a, b Version) int {
	for _, d := range [3]int{a.Major - b.Major, a.Minor - b.Minor, a.Patch - b.Patch} {
		if d < 0 {
			return -1
		}
		if d > 0 {
			return 1
		}
	}
	return 0
}

// CompareStrings parses both versions and compares them.
func CompareStrings(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return Compare(va, vb), nil
}

// DetermineUpdateType classifies the gap between current and latest.
func DetermineUpdateType(current, latest Version) UpdateType {
	if Compare(current, latest) >= 0 {
		return UpdateNone
	}
	if latest.Major > current.Major {
		return UpdateCritical
	}
	if latest.Minor > current.Minor {
		return UpdateRecommended
	}
	return UpdateOptional
}
