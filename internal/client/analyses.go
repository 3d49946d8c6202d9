package client

import (
	"context"
	"net/http"
	"net/url"

	"resumectl/internal/errors"
	"resumectl/internal/types"
)

// ListAnalyses returns the saved analyses attached to a resume.
func (c *Client) ListAnalyses(ctx context.Context, resumeID string) ([]types.SavedAnalysis, error) {
	if err := validateID("resume", resumeID); err != nil {
		return nil, err
	}
	req, _ := jsonRequest(http.MethodGet, "/api/v1/analysis/resume/"+url.PathEscape(resumeID), nil)
	resp, err := c.do(ctx, "list_analyses", req)
	if err != nil {
		return nil, failure(errors.ErrCodeFetchFailed, "failed to load saved analyses", err)
	}

	var analyses []types.SavedAnalysis
	if err := decode(resp, &analyses); err != nil {
		return nil, failure(errors.ErrCodeFetchFailed, "failed to load saved analyses", err)
	}
	if analyses == nil {
		analyses = []types.SavedAnalysis{}
	}
	return analyses, nil
}

// GetAnalysis fetches one saved analysis.
func (c *Client) GetAnalysis(ctx context.Context, id string) (*types.SavedAnalysis, error) {
	if err := validateID("analysis", id); err != nil {
		return nil, err
	}
	req, _ := jsonRequest(http.MethodGet, "/api/v1/analysis/"+url.PathEscape(id), nil)
	resp, err := c.do(ctx, "get_analysis", req)
	if err != nil {
		return nil, failure(errors.ErrCodeFetchFailed, "failed to load saved analysis", err)
	}

	var analysis types.SavedAnalysis
	if err := decode(resp, &analysis); err != nil {
		return nil, failure(errors.ErrCodeFetchFailed, "failed to load saved analysis", err)
	}
	return &analysis, nil
}

// CreateAnalysis persists a new saved analysis.
func (c *Client) CreateAnalysis(ctx context.Context, in types.CreateAnalysisRequest) (*types.SavedAnalysis, error) {
	if err := types.ValidateStruct(in); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "incomplete analysis", err)
	}
	return c.writeAnalysis(ctx, "create_analysis", http.MethodPost, "/api/v1/analysis", in)
}

// UpdateAnalysis overwrites the job description and summary of a saved analysis.
func (c *Client) UpdateAnalysis(ctx context.Context, id string, in types.UpdateAnalysisRequest) (*types.SavedAnalysis, error) {
	if err := validateID("analysis", id); err != nil {
		return nil, err
	}
	if err := types.ValidateStruct(in); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "incomplete analysis", err)
	}
	return c.writeAnalysis(ctx, "update_analysis", http.MethodPut, "/api/v1/analysis/"+url.PathEscape(id), in)
}

func (c *Client) writeAnalysis(ctx context.Context, operation, method, path string, payload any) (*types.SavedAnalysis, error) {
	req, err := jsonRequest(method, path, payload)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, operation, req)
	if err != nil {
		return nil, failure(errors.ErrCodeSaveFailed, "failed to save analysis", err)
	}

	var saved types.SavedAnalysis
	if err := decode(resp, &saved); err != nil {
		return nil, failure(errors.ErrCodeSaveFailed, "failed to save analysis", err)
	}
	return &saved, nil
}

// DeleteAnalysis removes a saved analysis.
func (c *Client) DeleteAnalysis(ctx context.Context, id string) error {
	if err := validateID("analysis", id); err != nil {
		return err
	}
	req, _ := jsonRequest(http.MethodDelete, "/api/v1/analysis/"+url.PathEscape(id), nil)
	if _, err := c.do(ctx, "delete_analysis", req); err != nil {
		return failure(errors.ErrCodeDeleteFailed, "failed to delete analysis", err)
	}
	return nil
}
