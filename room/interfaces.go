package room

// TimerCanceller cancels a pending turn timer. timer.TimerManager satisfies it;
// defined here so room does not depend on a concrete scheduler.
type TimerCanceller interface {
	RemoveTimer(timerID int64)
}
