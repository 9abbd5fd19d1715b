package songs

// ProgressDone is reported once a load has finished.
const ProgressDone = -1.0

// ProgressReporter receives load progress as a fraction in [0,1], then
// ProgressDone. Reports are advisory.
type ProgressReporter interface {
	Report(fraction float64)
}

// ProgressFunc adapts a function to a ProgressReporter.
type ProgressFunc func(fraction float64)

func (f ProgressFunc) Report(fraction float64) { f(fraction) }

type nopProgress struct{}

func (nopProgress) Report(float64) {}
