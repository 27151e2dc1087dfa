package upload

import (
	"io"
	"mime/multipart"
)

// File is one attachment picked in the ticket form.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FilesFromForm collects the non-empty file parts of a multipart field.
func FilesFromForm(form *multipart.Form, field string) []File {
	if form == nil {
		return nil
	}
	var files []File
	for _, fh := range form.File[field] {
		if fh.Filename == "" || fh.Size == 0 {
			continue
		}
		fh := fh
		files = append(files, File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return files
}
