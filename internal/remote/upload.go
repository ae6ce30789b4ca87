package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
)

// Upload is a multipart submission: one file part plus plain form fields.
type Upload struct {
	// Field is the file part name; "file" when empty.
	Field    string
	Filename string
	Content  io.Reader
	Fields   map[string]string
}

// UploadResult is whatever the backend answered. Some endpoints return JSON, others
// a bare URL as plain text.
type UploadResult struct {
	Value any
	URL   string
}

// Upload posts u to path as multipart/form-data.
func (c *Client) Upload(ctx context.Context, path string, u Upload) (UploadResult, error) {
	field := u.Field
	if field == "" {
		field = "file"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(u.Fields))
	for k := range u.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, u.Fields[k]); err != nil {
			return UploadResult{}, fmt.Errorf("write field %s: %w", k, err)
		}
	}

	part, err := mw.CreateFormFile(field, u.Filename)
	if err != nil {
		return UploadResult{}, fmt.Errorf("create file part: %w", err)
	}
	if u.Content != nil {
		if _, err := io.Copy(part, u.Content); err != nil {
			return UploadResult{}, fmt.Errorf("copy file content: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("close multipart: %w", err)
	}

	req := Request{Method: http.MethodPost, Path: path}
	resp, err := c.send(ctx, req, &buf, mw.FormDataContentType())
	if err != nil {
		return UploadResult{}, err
	}
	return uploadResult(resp), nil
}

func uploadResult(resp *Response) UploadResult {
	if resp.Empty() {
		return UploadResult{}
	}
	if v := resp.Decoded(); v != nil {
		res := UploadResult{Value: v}
		switch t := v.(type) {
		case string:
			res.URL = t
		case map[string]any:
			for _, key := range []string{"url", "fileUrl", "location", "path"} {
				if s, ok := t[key].(string); ok && s != "" {
					res.URL = s
					break
				}
			}
		}
		return res
	}
	text := strings.TrimSpace(string(resp.Body))
	return UploadResult{Value: text, URL: text}
}
