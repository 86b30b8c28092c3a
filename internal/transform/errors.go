package transform

import "errors"

var (
	// ErrBuildFailed is recorded on a service whose build exited non-zero or
	// could not be started
	ErrBuildFailed = errors.New("build failed")

	// ErrPathResolution is recorded on a service whose project path could not
	// be turned into an absolute file path
	ErrPathResolution = errors.New("project path could not be resolved")
)
