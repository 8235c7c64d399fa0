package orchestrator

// Recorder receives pipeline measurements. metrics.Collector implements it.
type Recorder interface {
	RunStarted(mode string)
	RunFinished(mode string, err error)
	TopicFailed()
	CardsProduced(n int)
	ReflectionIterations(n int)
}

type nopRecorder struct{}

func (nopRecorder) RunStarted(string) {}
func (nopRecorder) RunFinished(string, error) {}
func (nopRecorder) TopicFailed() {}
func (nopRecorder) CardsProduced(int) {}
func (nopRecorder) ReflectionIterations(int) {}
