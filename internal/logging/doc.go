// Package logger writes kete's diagnostic output.
//
// Every command builds one Logger in the root PersistentPreRun from the
// --verbose and --debug flags. Info and debug lines go to Out, warnings and
// errors to Err; pipelines that read a command's stdout should not pass -v.
//
//	Infof, Warnf      --verbose or --debug
//	Debugf, Errorf    --debug only
//	WarnfAlways       always, for things the user must act on
//
// ErrorfAndReturn logs at debug level and returns the formatted error, so a
// RunE can log and fail in one statement:
//
//	return Logger.ErrorfAndReturn("Failed to load user config: %w", err)
package logger
