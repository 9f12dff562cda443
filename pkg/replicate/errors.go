package replicate

// DeleteError is returned when a pre-existing destination cannot be removed.
type DeleteError struct {
	Path string
	Err  error
}

func (e DeleteError) Error() string {
	return "delete failure: " + e.Path + ": " + e.Err.Error()
}

func (e DeleteError) Unwrap() error {
	return e.Err
}

// CopyError is returned when duplicating the source into a destination fails.
type CopyError struct {
	Source string
	Dest   string
	Err    error
}

func (e CopyError) Error() string {
	return "copy failure: " + e.Source + " -> " + e.Dest + ": " + e.Err.Error()
}

func (e CopyError) Unwrap() error {
	return e.Err
}
