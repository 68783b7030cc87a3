package github

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/go-github/v57/github"

	apperrors "github.com/rohankatakam/repolens/internal/errors"
)

// ErrComputing is returned by the statistics endpoints while GitHub is
// still computing the result (HTTP 202). It is not a failure.
var ErrComputing = errors.New("statistics are still being computed")

// Classify maps a go-github error onto the analysis error taxonomy.
// A 404 is reported as NotFoundOrPrivate because GitHub uses the same
// status for missing repositories and private ones the caller cannot see.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var accepted *github.AcceptedError
	if errors.As(err, &accepted) {
		return ErrComputing
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout(err)
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return apperrors.RateLimited(err)
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return apperrors.NotFoundOrPrivate(err)
		case http.StatusForbidden, http.StatusTooManyRequests:
			return apperrors.RateLimited(err)
		}
		if isQuotaMessage(respErr.Message) {
			return apperrors.RateLimited(err)
		}
		return apperrors.UpstreamUnavailablef(err, "GitHub returned status %d", respErr.Response.StatusCode)
	}

	return apperrors.UpstreamUnavailable(err, "GitHub request failed")
}

func isQuotaMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota")
}

// IsContextError reports whether err stems from cancellation or a deadline
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		apperrors.IsKind(err, apperrors.KindTimeout)
}
