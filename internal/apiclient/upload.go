package apiclient

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/frahmantamala/service-desk/internal"
	uploadDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/upload"
	"github.com/frahmantamala/service-desk/internal/session"
)

const uploadPath = "/uploads/"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Upload streams one file as the multipart field "file" under the upload timeout.
func (c *Client) Upload(ctx context.Context, sess *session.Session, filename, contentType string, r io.Reader) (uploadDatamodel.Result, error) {
	var result uploadDatamodel.Result

	ctx, cancel := internal.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)

	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := mw.CreatePart(header)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(uploadPath, nil), pr)
	if err != nil {
		return result, internal.NewInternalError("failed to create upload request", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	if err := c.send(ctx, sess, httpReq, uploadPath, false, &result); err != nil {
		return result, err
	}
	if result.URL == "" {
		return result, internal.NewContractError("Upload response carried no url", nil)
	}
	if result.OriginalName == "" {
		result.OriginalName = filename
	}
	return result, nil
}
