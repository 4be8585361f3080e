package requirement

import (
	"strconv"
	"strings"

	"go.trai.ch/zerr"
	"golang.org/x/mod/semver"
)

// SatisfiedBy reports whether version meets every constraint in r.
// External and HEAD requirements accept any version.
func (r Requirement) SatisfiedBy(version string) (bool, error) {
	v, err := canonical(version)
	if err != nil {
		return false, err
	}
	for _, c := range r.Constraints {
		ok, err := c.satisfiedBy(v)
		if err != nil {
			return false, zerr.With(err, "requirement", r.String())
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (c Constraint) satisfiedBy(v string) (bool, error) {
	want, err := canonical(c.Version)
	if err != nil {
		return false, err
	}
	cmp := semver.Compare(v, want)
	switch c.Op {
	case OpEqual:
		return cmp == 0, nil
	case OpNotEqual:
		return cmp != 0, nil
	case OpGreater:
		return cmp > 0, nil
	case OpGreaterEqual:
		return cmp >= 0, nil
	case OpLess:
		return cmp < 0, nil
	case OpLessEqual:
		return cmp <= 0, nil
	case OpPessimistic:
		upper, err := pessimisticBound(c.Version)
		if err != nil {
			return false, err
		}
		return cmp >= 0 && semver.Compare(v, upper) < 0, nil
	}
	return false, zerr.With(zerr.Wrap(ErrInvalidRequirement, "unknown operator"), "operator", string(c.Op))
}

// canonical turns a pod version into the "v"-prefixed form semver expects.
func canonical(version string) (string, error) {
	v := "v" + strings.TrimPrefix(strings.TrimSpace(version), "v")
	if !semver.IsValid(v) {
		return "", zerr.With(zerr.Wrap(ErrInvalidVersion, "not a semantic version"), "version", version)
	}
	return v, nil
}

// pessimisticBound returns the exclusive upper bound of "~> version":
// the last release segment is dropped and the one before it bumped.
// "1.2.3" -> v1.3, "1.2" -> v2, "1" -> v2.
func pessimisticBound(version string) (string, error) {
	release, _, _ := strings.Cut(version, "-")
	release, _, _ = strings.Cut(release, "+")
	segments := strings.Split(release, ".")
	if len(segments) > 1 {
		segments = segments[:len(segments)-1]
	}
	last, err := strconv.Atoi(segments[len(segments)-1])
	if err != nil {
		return "", zerr.With(zerr.Wrap(ErrInvalidVersion, "non-numeric release segment"), "version", version)
	}
	segments[len(segments)-1] = strconv.Itoa(last + 1)
	return canonical(strings.Join(segments, "."))
}
