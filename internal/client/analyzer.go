package client

import (
	"context"
	"net/http"
	"net/url"

	"resumectl/internal/errors"
	"resumectl/internal/types"
)

// Analyze scores a resume against a job description. The call is never
// retried: scoring is slow and not guaranteed to be idempotent.
func (c *Client) Analyze(ctx context.Context, resumeID, jobDescription string) (*types.AnalysisResult, error) {
	if err := validateID("resume", resumeID); err != nil {
		return nil, err
	}
	body := types.AnalyzeRequest{JobDescription: jobDescription}
	if err := types.ValidateStruct(body); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "job description is required", err)
	}

	req, err := jsonRequest(http.MethodPost, "/api/v1/resumes/analyze/"+url.PathEscape(resumeID), body)
	if err != nil {
		return nil, err
	}
	req.timeout = c.analyzeTimeout

	resp, err := c.do(ctx, "analyze", req)
	if err != nil {
		return nil, failure(errors.ErrCodeAnalysisFailed, "analysis failed", err)
	}

	if err := c.schema.validate(resp.body); err != nil {
		return nil, failure(errors.ErrCodeAnalysisFailed, "analysis returned an unexpected result", err)
	}

	var result types.AnalysisResult
	if err := decode(resp, &result); err != nil {
		return nil, failure(errors.ErrCodeAnalysisFailed, "analysis returned an unexpected result", err)
	}
	return &result, nil
}
