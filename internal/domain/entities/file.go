package entities

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// FileType is the normalized git object kind of a listing entry.
type FileType string

const (
	FileTypeBlob FileType = "blob"
	FileTypeTree FileType = "tree"
)

// EncodingBase64 is the default encoding of FileContent.Content.
const EncodingBase64 = "base64"

// RefType tells whether a ref names a branch or a commit.
type RefType string

const (
	RefTypeBranch RefType = "branch"
	RefTypeCommit RefType = "commit"
)

// binaryExtensions are always returned base64-encoded, even when raw content is requested.
var binaryExtensions = map[string]bool{ //nolint:gochecknoglobals // static lookup table
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".ico": true,
	".xlsx": true, ".xls": true, ".docx": true, ".doc": true, ".pptx": true, ".ppt": true,
	".pdf": true, ".zip": true, ".gz": true, ".tar": true, ".parquet": true, ".pkl": true,
}

// IsBinaryPath reports whether the file extension is a known binary format.
func IsBinaryPath(filePath string) bool {
	return binaryExtensions[strings.ToLower(path.Ext(filePath))]
}

// IsNotebookPath reports whether the file is a Jupyter notebook.
func IsNotebookPath(filePath string) bool {
	return strings.EqualFold(path.Ext(filePath), ".ipynb")
}

// FileEntry is the shape every provider listing is normalized to.
type FileEntry struct {
	Name string
	Path string
	Type FileType
}

// NewFileEntry builds an entry, deriving the name from the path.
func NewFileEntry(entryPath string, fileType FileType) FileEntry {
	clean := strings.Trim(entryPath, "/")
	return FileEntry{Name: path.Base(clean), Path: clean, Type: fileType}
}

// ReadFileInput selects a file at a branch or commit.
type ReadFileInput struct {
	Path    string
	Ref     string
	RefType RefType
	Raw     bool
}

// FileContent is the normalized answer of read_file.
// Content is base64 unless Raw was requested for a non-binary file; Document
// holds the parsed JSON of a notebook read in raw mode.
type FileContent struct {
	Path     string
	URL      string
	SHA      string
	Content  string
	Encoding *string
	Document any
}

// NewFileContent applies the encoding rules shared by every provider.
func NewFileContent(filePath, url, sha string, data []byte, raw bool) (*FileContent, error) {
	content := &FileContent{Path: strings.TrimPrefix(filePath, "/"), URL: url, SHA: sha}

	if IsBinaryPath(filePath) {
		content.Content = base64.StdEncoding.EncodeToString(data)
		return content, nil
	}
	if !raw {
		encoding := EncodingBase64
		content.Content = base64.StdEncoding.EncodeToString(data)
		content.Encoding = &encoding
		return content, nil
	}

	content.Content = string(data)
	if IsNotebookPath(filePath) {
		var document any
		if err := json.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("failed to parse notebook %q: %w", filePath, err)
		}
		content.Document = document
	}
	return content, nil
}

// Bytes returns the file content as written in the repository.
func (c *FileContent) Bytes() ([]byte, error) {
	if c.Encoding == nil && !IsBinaryPath(c.Path) {
		return []byte(c.Content), nil
	}
	data, err := base64.StdEncoding.DecodeString(c.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %q: %w", c.Path, err)
	}
	return data, nil
}

// UpdateFileInput describes a single-file commit.
type UpdateFileInput struct {
	Path    string
	Content string
	Message string
	Branch  string
	Author  Identity
}

// UpdatedFile is the answer of update_file.
type UpdatedFile struct {
	SHA string
	URL string
}

// Download is a file or zipped folder ready to be streamed.
type Download struct {
	Name        string
	ContentType string
	Data        []byte
}
