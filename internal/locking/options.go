package locking

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"go.trai.ch/zerr"
)

// ErrMalformedLockRecord is returned when a PODS entry is neither a
// requirement string nor a single-key mapping of one to its dependencies.
var ErrMalformedLockRecord = zerr.New("malformed lock record")

// ErrUnknownPolicy is returned by ParseMalformedPolicy.
var ErrUnknownPolicy = zerr.New("unknown malformed policy")

// MalformedPolicy selects what Build does with malformed PODS entries.
type MalformedPolicy int

const (
	// FailOnMalformed aborts the build with ErrMalformedLockRecord.
	FailOnMalformed MalformedPolicy = iota
	// SkipMalformed logs the entry and leaves it out of the graph. A mapping
	// of several requirements is still read, one pod per key.
	SkipMalformed
)

func (p MalformedPolicy) String() string {
	if p == SkipMalformed {
		return "skip"
	}
	return "fail"
}

// ParseMalformedPolicy converts "fail" or "skip" to a policy.
func ParseMalformedPolicy(s string) (MalformedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return FailOnMalformed, nil
	case "skip":
		return SkipMalformed, nil
	default:
		return FailOnMalformed, zerr.With(zerr.Wrap(ErrUnknownPolicy, "expected fail or skip"), "policy", s)
	}
}

// Options configures a build.
type Options struct {
	Malformed MalformedPolicy

	// Logger receives debug and warning output. Nil discards it.
	Logger *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.New(io.Discard)
}
