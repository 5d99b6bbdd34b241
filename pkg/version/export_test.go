package version

import "runtime/debug"

// ProbeApply exposes apply for testing.
func ProbeApply(info *debug.BuildInfo) {
	apply(info)
}
