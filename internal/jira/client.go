// Package jira implements the ticket service on top of the JIRA REST API.
package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	jira "github.com/andygrunwald/go-jira"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/danielolaszy/jirabot/internal/config"
	"github.com/danielolaszy/jirabot/internal/logging"
	"github.com/danielolaszy/jirabot/internal/ticket"
	"github.com/danielolaszy/jirabot/pkg/models"
)

// statusNames lists the remote status and transition names accepted for
// each local status, most specific first.
var statusNames = map[models.Status][]string{
	models.StatusBacklog:    {"Backlog", "To Do", "Open"},
	models.StatusInProgress: {"In Progress"},
	models.StatusDone:       {"Done", "Closed", "Resolved"},
}

// Client handles interactions with the JIRA API.
type Client struct {
	client     *jira.Client
	limiter    *rate.Limiter
	defectType string
}

var _ ticket.Service = (*Client)(nil)

// NewClient creates a JIRA client from configuration and verifies the
// credentials before returning. With a username the token is used for basic
// auth; without one it is sent as a bearer token.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if err := config.ValidateJiraConfig(cfg); err != nil {
		return nil, err
	}

	authMode := "basic"
	if cfg.Jira.Username == "" {
		authMode = "bearer"
	}
	logging.Info("jira configuration",
		"url", cfg.Jira.URL,
		"auth", authMode,
		"token", logging.MaskSensitive(cfg.Jira.Token))

	c, err := newClient(httpClient(ctx, cfg.Jira), cfg.Jira)
	if err != nil {
		return nil, err
	}

	user, resp, err := c.client.User.GetSelfWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("error testing jira credentials: %w", classify(ctx, "verify credentials", resp, err))
	}

	logging.Info("jira authentication successful", "user", user.DisplayName)
	return c, nil
}

// httpClient builds the authenticated transport for the configured credentials.
func httpClient(ctx context.Context, cfg config.JiraConfig) *http.Client {
	var hc *http.Client
	if cfg.Username != "" {
		tp := jira.BasicAuthTransport{
			Username: cfg.Username,
			Password: cfg.Token,
		}
		hc = tp.Client()
	} else {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		hc = oauth2.NewClient(ctx, ts)
	}
	hc.Timeout = cfg.Timeout
	return hc
}

func newClient(hc *http.Client, cfg config.JiraConfig) (*Client, error) {
	client, err := jira.NewClient(hc, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	defectType := cfg.DefectType
	if defectType == "" {
		defectType = "Bug"
	}

	return &Client{
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		defectType: defectType,
	}, nil
}

// CreateIssue creates an issue and returns the key JIRA assigned to it.
func (c *Client) CreateIssue(ctx context.Context, project string, issueType models.IssueType, summary, description string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	issue := &jira.Issue{
		Fields: &jira.IssueFields{
			Project: jira.Project{
				Key: project,
			},
			Summary:     summary,
			Description: description,
			Type: jira.IssueType{
				Name: c.remoteTypeName(issueType),
			},
		},
	}

	created, resp, err := c.client.Issue.CreateWithContext(ctx, issue)
	if err != nil {
		return "", classify(ctx, "create issue", resp, err)
	}

	logging.Debug("created jira issue", "project", project, "key", created.Key)
	return created.Key, nil
}

// TransitionIssue moves an issue to the status by picking the matching
// workflow transition. An issue already in that status is left alone.
func (c *Client) TransitionIssue(ctx context.Context, key string, status models.Status) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	transitions, resp, err := c.client.Issue.GetTransitionsWithContext(ctx, key)
	if err != nil {
		return classify(ctx, "get transitions", resp, err)
	}

	transitionID := findTransition(transitions, status)
	if transitionID == "" {
		return c.checkAlreadyIn(ctx, key, status, transitions)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err = c.client.Issue.DoTransitionWithContext(ctx, key, transitionID)
	if err != nil {
		return classify(ctx, "transition issue", resp, err)
	}

	logging.Debug("transitioned jira issue", "key", key, "status", status, "transition_id", transitionID)
	return nil
}

func (c *Client) checkAlreadyIn(ctx context.Context, key string, status models.Status, transitions []jira.Transition) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	issue, resp, err := c.client.Issue.GetWithContext(ctx, key, nil)
	if err != nil {
		return classify(ctx, "get issue", resp, err)
	}
	if issue.Fields != nil && issue.Fields.Status != nil && matchesStatus(issue.Fields.Status.Name, status) {
		logging.Debug("jira issue already in target status", "key", key, "status", status)
		return nil
	}

	var available []string
	for _, t := range transitions {
		available = append(available, t.Name)
	}
	return ticket.Rejected("transition issue", 0,
		fmt.Errorf("no transition to %q for %s (available: %s)", status, key, strings.Join(available, ", ")))
}

// UpdateField replaces the summary or description of an issue.
func (c *Client) UpdateField(ctx context.Context, key string, field models.Field, value string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	data := map[string]interface{}{
		"fields": map[string]interface{}{
			string(field): value,
		},
	}
	resp, err := c.client.Issue.UpdateIssueWithContext(ctx, key, data)
	if err != nil {
		return classify(ctx, "update field", resp, err)
	}

	logging.Debug("updated jira issue field", "key", key, "field", field)
	return nil
}

// AssignIssue assigns the issue to the first user matching assignee, or
// clears the assignee for "Unassigned".
func (c *Client) AssignIssue(ctx context.Context, key string, assignee string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if models.IsUnassigned(assignee) {
		data := map[string]interface{}{
			"fields": map[string]interface{}{
				"assignee": nil,
			},
		}
		resp, err := c.client.Issue.UpdateIssueWithContext(ctx, key, data)
		if err != nil {
			return classify(ctx, "unassign issue", resp, err)
		}
		logging.Debug("unassigned jira issue", "key", key)
		return nil
	}

	// go-jira puts the search term into the query string verbatim
	users, resp, err := c.client.User.FindWithContext(ctx, url.QueryEscape(assignee))
	if err != nil {
		return classify(ctx, "find user", resp, err)
	}
	if len(users) == 0 {
		return ticket.Rejected("assign issue", 0, fmt.Errorf("no jira user matches %q", assignee))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	user := &jira.User{AccountID: users[0].AccountID, Name: users[0].Name}
	resp, err = c.client.Issue.UpdateAssigneeWithContext(ctx, key, user)
	if err != nil {
		return classify(ctx, "assign issue", resp, err)
	}

	logging.Debug("assigned jira issue", "key", key, "assignee", users[0].DisplayName)
	return nil
}

// AddComment posts a comment to the issue.
func (c *Client) AddComment(ctx context.Context, key string, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, resp, err := c.client.Issue.AddCommentWithContext(ctx, key, &jira.Comment{Body: text})
	if err != nil {
		return classify(ctx, "add comment", resp, err)
	}

	logging.Debug("added jira comment", "key", key)
	return nil
}

func (c *Client) remoteTypeName(t models.IssueType) string {
	if t == models.TypeDefect {
		return c.defectType
	}
	return string(t)
}

func findTransition(transitions []jira.Transition, status models.Status) string {
	for _, t := range transitions {
		if matchesStatus(t.To.Name, status) {
			return t.ID
		}
	}
	for _, t := range transitions {
		if matchesStatus(t.Name, status) {
			return t.ID
		}
	}
	return ""
}

func matchesStatus(name string, status models.Status) bool {
	for _, candidate := range statusNames[status] {
		if strings.EqualFold(strings.TrimSpace(name), candidate) {
			return true
		}
	}
	return false
}

// classify turns a go-jira failure into a ticket error. Failures without a
// response are transport problems and worth retrying, unless the caller's
// context ended.
func classify(ctx context.Context, op string, resp *jira.Response, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	if resp == nil || resp.Response == nil {
		return ticket.Transient(op, 0, err)
	}
	if ticket.RetryableStatus(resp.StatusCode) {
		return ticket.Transient(op, resp.StatusCode, err)
	}
	return ticket.Rejected(op, resp.StatusCode, err)
}
