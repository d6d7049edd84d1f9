package orchestrator

import (
	"fmt"
	"os"

	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

// Outcome is the terminal classification of one session. Exactly one
// outcome is computed per session close.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomePartialSuccess
	OutcomeCanceled
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartialSuccess:
		return "partial"
	case OutcomeCanceled:
		return "canceled"
	}
	return "error"
}

// Termination is the computed close classification plus how it was reached.
type Termination struct {
	Outcome Outcome
	Reason  string
	Method  string
}

// exitFacts are the classification inputs observed at process exit.
type exitFacts struct {
	ExitCode    int
	Signal      string
	Canceled    bool
	ValidOutput bool
	MediaType   types.MediaType
}

// classify maps exit facts to a termination outcome. The decision order is
// load-bearing: a delivered signal is the most reliable cancellation
// evidence and must win before the cancellation flag (which may not have
// propagated yet), and the flag must win before the exit code so a
// benign-looking exit cannot mask a user-initiated cancel.
func classify(f exitFacts) Termination {
	if f.Signal != "" {
		return Termination{
			Outcome: OutcomeCanceled,
			Reason:  fmt.Sprintf("terminated by signal %s", f.Signal),
			Method:  "signal",
		}
	}
	if f.Canceled {
		if f.MediaType == types.MediaDirect && f.ValidOutput {
			return Termination{
				Outcome: OutcomePartialSuccess,
				Reason:  "canceled with playable partial file",
				Method:  "cancel-flag",
			}
		}
		return Termination{
			Outcome: OutcomeCanceled,
			Reason:  "canceled by user",
			Method:  "cancel-flag",
		}
	}
	if f.ExitCode == 0 {
		if f.ValidOutput {
			return Termination{
				Outcome: OutcomeSuccess,
				Reason:  "completed",
				Method:  "exit-code",
			}
		}
		return Termination{
			Outcome: OutcomeError,
			Reason:  "exit 0 but no valid output file",
			Method:  "output-check",
		}
	}
	return Termination{
		Outcome: OutcomeError,
		Reason:  fmt.Sprintf("transcoder exited with code %d", f.ExitCode),
		Method:  "exit-code",
	}
}

const (
	// minSubtitleBytes is the plausibility floor for subtitle-only output.
	minSubtitleBytes = 100
	// minMediaBytes is the plausibility floor for any other output.
	minMediaBytes = 10 * 1024
)

// validOutput reports whether the output file exists and clears the
// type-specific minimum size.
func validOutput(path string, subsOnly bool) bool {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	minSize := int64(minMediaBytes)
	if subsOnly {
		minSize = minSubtitleBytes
	}
	return fi.Size() >= minSize
}
