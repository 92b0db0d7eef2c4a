package fileset

// Reporter receives progress callbacks from a file-set run.
// Implementations can display progress bars, log messages, or remain silent.
type Reporter interface {
	// OnDiscoveryComplete is called once the file list is known.
	OnDiscoveryComplete(totalFiles int)

	// OnFile is called after each file. err is the file's failure when the
	// run continues on errors. Returning false aborts the run.
	OnFile(name string, wrappedTexts int, err error) bool

	// OnComplete is called when the run finished without aborting.
	OnComplete(result *Result)
}

// NoOpReporter is a reporter that does nothing.
type NoOpReporter struct{}

func (NoOpReporter) OnDiscoveryComplete(totalFiles int)                   {}
func (NoOpReporter) OnFile(name string, wrappedTexts int, err error) bool { return true }
func (NoOpReporter) OnComplete(result *Result)                            {}
