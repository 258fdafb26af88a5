package port

// FileInfo is a file found while discovering sources.
type FileInfo struct {
	Path string
	Size int64
}

// SourceReader loads source text. An empty path selects the built-in text.
type SourceReader interface {
	ReadSource(path string) (string, error)
}
