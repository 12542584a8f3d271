package app

const (
	Name           = "probelink"
	ConfigFilename = "config.json"
	DBFilename     = "capture.db"
	LogFilename    = "probelink.log"
	// ReplyBufferSize bounds a single probe reply read by Exchange.
	ReplyBufferSize = 1024
)
