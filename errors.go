package consensus

import (
	"errors"
	"fmt"
)

// Sentinel errors a Runner may return to classify a failed base
// clustering run. Generate absorbs both kinds: the slice is recorded
// as missing and the ensemble continues.
var (
	// ErrUnavailable reports that the requested base algorithm cannot
	// run at all on the given data.
	ErrUnavailable = errors.New("consensus: algorithm unavailable")

	// ErrNonConvergence reports that the base algorithm ran but failed
	// to converge on the given subsample.
	ErrNonConvergence = errors.New("consensus: algorithm did not converge")
)

// ConfigError reports invalid configuration or malformed input: a bad
// cluster count, an empty ensemble, a sample with no assignment in any
// partition. It is fatal; retrying with the same inputs cannot succeed.
type ConfigError struct {
	Field  string
	Reason string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("consensus: invalid %s: %s", e.Field, e.Reason)
}

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool {
	var ce ConfigError
	return errors.As(err, &ce)
}

// ShapeError reports mismatched dimensions between collaborating
// inputs, such as partitions of different lengths or a data matrix
// whose row count disagrees with a label vector.
type ShapeError struct {
	Op     string
	Want   int
	Got    int
	Detail string
}

func (e ShapeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("consensus: %s: %s (want %d, got %d)", e.Op, e.Detail, e.Want, e.Got)
	}
	return fmt.Sprintf("consensus: %s: dimension mismatch (want %d, got %d)", e.Op, e.Want, e.Got)
}

// IsShapeError reports whether err is a ShapeError.
func IsShapeError(err error) bool {
	var se ShapeError
	return errors.As(err, &se)
}

// ConsensusError reports that a consensus function could not produce a
// complete partition from otherwise valid inputs, for example a sample
// that received no votes. Sample is the index of the first offending
// sample, or -1 when the failure is not tied to one sample.
type ConsensusError struct {
	Method Method
	Sample int
	Reason string
}

func (e ConsensusError) Error() string {
	if e.Sample >= 0 {
		return fmt.Sprintf("consensus: %s: sample %d: %s", e.Method, e.Sample, e.Reason)
	}
	return fmt.Sprintf("consensus: %s: %s", e.Method, e.Reason)
}

// IsConsensusError reports whether err is a ConsensusError.
func IsConsensusError(err error) bool {
	var ce ConsensusError
	return errors.As(err, &ce)
}
