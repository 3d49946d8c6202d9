package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"

	"resumectl/internal/errors"
	"resumectl/internal/types"

	"github.com/google/uuid"
)

// ListResumes returns the current user's resumes.
func (c *Client) ListResumes(ctx context.Context) ([]types.Resume, error) {
	req, _ := jsonRequest(http.MethodGet, "/api/v1/resumes/user/me", nil)
	resp, err := c.do(ctx, "list_resumes", req)
	if err != nil {
		return nil, failure(errors.ErrCodeFetchFailed, "failed to load resumes", err)
	}

	var resumes []types.Resume
	if err := decode(resp, &resumes); err != nil {
		return nil, failure(errors.ErrCodeFetchFailed, "failed to load resumes", err)
	}
	if resumes == nil {
		resumes = []types.Resume{}
	}
	return resumes, nil
}

// GetResume fetches one resume including its parsed text.
func (c *Client) GetResume(ctx context.Context, id string) (*types.Resume, error) {
	if err := validateID("resume", id); err != nil {
		return nil, err
	}
	req, _ := jsonRequest(http.MethodGet, "/api/v1/resumes/"+url.PathEscape(id), nil)
	resp, err := c.do(ctx, "get_resume", req)
	if err != nil {
		return nil, failure(errors.ErrCodeFetchFailed, "failed to load resume", err)
	}

	var resume types.Resume
	if err := decode(resp, &resume); err != nil {
		return nil, failure(errors.ErrCodeFetchFailed, "failed to load resume", err)
	}
	return &resume, nil
}

// UploadResume sends a PDF as multipart field "file". The API parses it and
// returns the stored record.
func (c *Client) UploadResume(ctx context.Context, fileName string, data []byte) (*types.Resume, error) {
	if len(data) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, "resume file is empty", nil)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(fileName)))
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to build upload", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to build upload", err)
	}
	if err := writer.Close(); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to build upload", err)
	}

	req := &request{
		method:      http.MethodPost,
		path:        "/api/v1/resumes/upload",
		body:        buf.Bytes(),
		contentType: writer.FormDataContentType(),
		accept:      "application/json",
	}
	resp, err := c.do(ctx, "upload_resume", req)
	if err != nil {
		return nil, failure(errors.ErrCodeUploadFailed, "failed to upload resume", err)
	}

	var resume types.Resume
	if err := decode(resp, &resume); err != nil {
		return nil, failure(errors.ErrCodeUploadFailed, "failed to upload resume", err)
	}
	return &resume, nil
}

// DeleteResume removes a resume and, server side, its saved analyses.
func (c *Client) DeleteResume(ctx context.Context, id string) error {
	if err := validateID("resume", id); err != nil {
		return err
	}
	req, _ := jsonRequest(http.MethodDelete, "/api/v1/resumes/"+url.PathEscape(id), nil)
	if _, err := c.do(ctx, "delete_resume", req); err != nil {
		return failure(errors.ErrCodeDeleteFailed, "failed to delete resume", err)
	}
	return nil
}

// ResumePDF downloads the original PDF bytes.
func (c *Client) ResumePDF(ctx context.Context, id string) ([]byte, error) {
	if err := validateID("resume", id); err != nil {
		return nil, err
	}
	req := &request{
		method: http.MethodGet,
		path:   "/api/v1/resumes/" + url.PathEscape(id) + "/pdf",
		accept: "application/pdf",
	}
	resp, err := c.do(ctx, "resume_pdf", req)
	if err != nil {
		return nil, failure(errors.ErrCodeFetchFailed, "failed to download resume PDF", err)
	}
	return resp.body, nil
}

// validateID rejects identifiers the API would not accept as UUIDs.
func validateID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, fmt.Sprintf("invalid %s id %q", kind, id), err)
	}
	return nil
}
