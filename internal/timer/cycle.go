package timer

// NextKind returns the kind that follows a completed session of kind.
// completedWork counts finished work sessions including the one that just
// ended; every longBreakEvery of them earns a long break.
func NextKind(kind Kind, completedWork, longBreakEvery int) Kind {
	if kind.IsBreak() {
		return KindWork
	}
	if longBreakEvery > 0 && completedWork > 0 && completedWork%longBreakEvery == 0 {
		return KindLongBreak
	}
	return KindShortBreak
}
