package models

import (
	"fmt"
	"strings"

	apperrors "github.com/rohankatakam/repolens/internal/errors"
)

// RepoIdentifier names a repository on the upstream platform
type RepoIdentifier struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// String returns owner/name
func (id RepoIdentifier) String() string {
	return fmt.Sprintf("%s/%s", id.Owner, id.Name)
}

// CacheKey returns the lower-cased form used as a cache key
func (id RepoIdentifier) CacheKey() string {
	return strings.ToLower(strings.TrimSpace(id.String()))
}

// ParseIdentifier normalizes free-form input into a RepoIdentifier.
//
// Accepted shapes:
//
//	owner/repo
//	github.com/owner/repo
//	https://github.com/owner/repo(.git)(/)
//	https://github.com/owner/repo/tree/main
//	git@github.com:owner/repo.git
func ParseIdentifier(input string) (RepoIdentifier, error) {
	s := strings.TrimSpace(input)

	// Query strings and fragments never carry the repository path
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}

	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+len("://"):]
	}

	// SSH form: git@host:owner/repo
	if strings.HasPrefix(s, "git@") {
		s = strings.Replace(strings.TrimPrefix(s, "git@"), ":", "/", 1)
	}

	s = strings.TrimRight(s, "/")
	s = strings.TrimSuffix(s, ".git")
	s = strings.TrimRight(s, "/")

	parts := strings.Split(s, "/")

	var owner, name string
	switch {
	case len(parts) >= 3 && isHost(parts[0]):
		owner, name = parts[1], parts[2]
	case len(parts) == 2 && !isHost(parts[0]):
		owner, name = parts[0], parts[1]
	default:
		return RepoIdentifier{}, apperrors.InvalidIdentifier(input)
	}

	name = strings.TrimSuffix(name, ".git")
	if !validSegment(owner) || !validSegment(name) {
		return RepoIdentifier{}, apperrors.InvalidIdentifier(input)
	}

	return RepoIdentifier{Owner: owner, Name: name}, nil
}

// isHost reports whether a path segment looks like a hostname.
// Account names on the platform cannot contain dots or colons, so a
// leading segment with either (or bare localhost) is a host.
func isHost(segment string) bool {
	return segment == "localhost" || strings.ContainsAny(segment, ".:")
}

func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, " \t\n:@")
}
