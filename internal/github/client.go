// Package github reads bot commands from GitHub issue threads and posts
// results back to them.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"

	"github.com/danielolaszy/jirabot/internal/config"
	"github.com/danielolaszy/jirabot/internal/logging"
)

var issueRefPattern = regexp.MustCompile(`^([\w.-]+)/([\w.-]+)#(\d+)$`)

// IssueRef identifies a GitHub issue, written as "owner/repo#123".
type IssueRef struct {
	Owner  string
	Repo   string
	Number int
}

func (r IssueRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// ParseIssueRef parses an "owner/repo#123" reference.
func ParseIssueRef(s string) (IssueRef, error) {
	m := issueRefPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return IssueRef{}, fmt.Errorf("invalid issue reference %q, expected format: owner/repo#number", s)
	}
	number, err := strconv.Atoi(m[3])
	if err != nil || number < 1 {
		return IssueRef{}, fmt.Errorf("invalid issue number in %q", s)
	}
	return IssueRef{Owner: m[1], Repo: m[2], Number: number}, nil
}

// Client encapsulates the GitHub API client.
type Client struct {
	client *github.Client
}

// APIURL returns the REST endpoint for a GitHub domain. Anything other than
// github.com is treated as GitHub Enterprise.
func APIURL(domain string) string {
	if domain == "" || domain == "github.com" {
		return "https://api.github.com/"
	}
	return fmt.Sprintf("https://%s/api/v3/", domain)
}

// NewClient creates a GitHub API client from configuration and tests the
// token before returning.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if err := config.ValidateGitHubConfig(cfg); err != nil {
		return nil, err
	}

	apiURL := APIURL(cfg.GitHub.Domain)
	logging.Info("github configuration",
		"domain", cfg.GitHub.Domain,
		"api_url", apiURL,
		"token", logging.MaskSensitive(cfg.GitHub.Token))

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHub.Token})
	c, err := newClient(oauth2.NewClient(ctx, ts), apiURL)
	if err != nil {
		return nil, err
	}

	testCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	user, resp, err := c.client.Users.Get(testCtx, "")
	if err != nil {
		statusCode := 0
		if resp != nil {
			statusCode = resp.StatusCode
		}
		logging.Error("failed to test github token", "error", err, "status_code", statusCode)
		return nil, fmt.Errorf("error testing github token: %w", err)
	}

	logging.Info("github authentication successful", "username", user.GetLogin())
	return c, nil
}

func newClient(hc *http.Client, apiURL string) (*Client, error) {
	client := github.NewClient(hc)
	if apiURL != APIURL("") {
		parsedURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url: %w", err)
		}
		client.BaseURL = parsedURL
		client.UploadURL = parsedURL
	}
	return &Client{client: client}, nil
}

// CommandLines collects the command lines of an issue thread: every line of
// the issue body and its comments that starts with prefix, in posting order,
// with the prefix removed.
func (c *Client) CommandLines(ctx context.Context, ref IssueRef, prefix string) ([]string, error) {
	if strings.TrimSpace(prefix) == "" {
		return nil, fmt.Errorf("command prefix must not be empty")
	}

	issue, _, err := c.client.Issues.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to get github issue %s: %w", ref, err)
	}

	lines := extractCommands(issue.GetBody(), prefix)

	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		comments, resp, err := c.client.Issues.ListComments(ctx, ref.Owner, ref.Repo, ref.Number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list comments of %s: %w", ref, err)
		}
		for _, comment := range comments {
			lines = append(lines, extractCommands(comment.GetBody(), prefix)...)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	logging.Debug("collected github commands", "issue", ref.String(), "count", len(lines))
	return lines, nil
}

// PostComment adds a comment to the issue.
func (c *Client) PostComment(ctx context.Context, ref IssueRef, body string) error {
	_, _, err := c.client.Issues.CreateComment(ctx, ref.Owner, ref.Repo, ref.Number, &github.IssueComment{Body: github.String(body)})
	if err != nil {
		logging.Error("error posting comment", "issue", ref.String(), "error", err)
		return fmt.Errorf("failed to comment on %s: %w", ref, err)
	}
	logging.Debug("posted github comment", "issue", ref.String())
	return nil
}

func extractCommands(body, prefix string) []string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		rest := line[len(prefix):]
		// "/jiraxyz" is not a command
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			continue
		}
		if rest = strings.TrimSpace(rest); rest != "" {
			lines = append(lines, rest)
		}
	}
	return lines
}
