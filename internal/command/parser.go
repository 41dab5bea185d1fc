package command

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/danielolaszy/jirabot/pkg/models"
)

var (
	issueKeyPattern   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*-\d+$`)
	projectKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{0,9}$`)
)

// issueTypes maps type words to issue types. "bug" and "defect" are synonyms.
var issueTypes = map[string]models.IssueType{
	"story":  models.TypeStory,
	"task":   models.TypeTask,
	"defect": models.TypeDefect,
	"bug":    models.TypeDefect,
}

// statuses maps normalized status phrases to statuses.
var statuses = map[string]models.Status{
	"backlog":     models.StatusBacklog,
	"to do":       models.StatusBacklog,
	"todo":        models.StatusBacklog,
	"open":        models.StatusBacklog,
	"in progress": models.StatusInProgress,
	"inprogress":  models.StatusInProgress,
	"started":     models.StatusInProgress,
	"done":        models.StatusDone,
	"closed":      models.StatusDone,
	"resolved":    models.StatusDone,
	"complete":    models.StatusDone,
	"completed":   models.StatusDone,
}

var fields = map[string]models.Field{
	"summary":     models.FieldSummary,
	"title":       models.FieldSummary,
	"description": models.FieldDescription,
}

// template is one command shape, selected by its leading verb.
type template struct {
	verbs []string
	parse func(c *cursor, verb string) (Action, error)
}

// templates are tried in order; the first whose verb matches owns the line.
var templates = []template{
	{verbs: []string{"create", "new"}, parse: parseCreate},
	{verbs: []string{"transition", "move"}, parse: parseTransition},
	{verbs: []string{"close", "resolve", "reopen", "start"}, parse: parseShortcut},
	{verbs: []string{"modify", "update", "set"}, parse: parseModify},
	{verbs: []string{"assign"}, parse: parseAssign},
	{verbs: []string{"unassign"}, parse: parseUnassign},
	{verbs: []string{"add", "comment"}, parse: parseComment},
}

// Parse turns a raw command line into an Action. It is pure: it never looks
// at issue state, so key and project existence are checked at execution time.
func Parse(line string) (Action, error) {
	tokens, err := Normalize(line)
	if err != nil {
		return nil, err
	}

	c := &cursor{line: strings.TrimSpace(line), tokens: tokens}
	if len(tokens) == 0 {
		return nil, c.fail("empty command")
	}

	head := tokens[0]
	if !head.Quoted {
		for _, t := range templates {
			for _, verb := range t.verbs {
				if head.Word == verb {
					c.pos = 1
					return t.parse(c, verb)
				}
			}
		}
	}

	return nil, c.fail("no command starts with %q", head.Text)
}

// ParseStatus resolves a status phrase such as "in progress" or "Done".
func ParseStatus(phrase string) (models.Status, error) {
	normalized := strings.Join(strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(phrase))), " ")
	if s, ok := statuses[normalized]; ok {
		return s, nil
	}
	names := make([]string, len(models.Statuses))
	for i, s := range models.Statuses {
		names[i] = string(s)
	}
	return "", fmt.Errorf("%w %q (want one of %s)", ErrUnsupportedStatus, phrase, strings.Join(names, ", "))
}

// ParseIssueType resolves a type word such as "bug" or "Story".
func ParseIssueType(word string) (models.IssueType, error) {
	if t, ok := issueTypes[strings.ToLower(strings.TrimSpace(word))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnsupportedType, word)
}

func parseCreate(c *cursor, _ string) (Action, error) {
	c.accept("a", "an")

	act := CreateIssue{Type: models.TypeStory}
	if t, ok := c.peek(); ok && !t.Quoted && !isSummaryMarker(t.Word) {
		c.pos++
		typ, err := ParseIssueType(t.Word)
		if err != nil {
			return nil, fmt.Errorf("%w in %q", err, c.line)
		}
		act.Type = typ
	}

	c.accept("called", "titled", "named")
	summary, ok := c.literal()
	if !ok {
		return nil, c.fail("expected a quoted summary")
	}
	act.Summary = summary

	for !c.done() {
		switch {
		case c.accept("in", "for"):
			c.accept("project")
			key, err := c.projectKey()
			if err != nil {
				return nil, err
			}
			act.Project = key
		case c.accept("with", "and"):
			if !c.accept("description") {
				return nil, c.fail("expected 'description' after %q", c.tokens[c.pos-1].Text)
			}
			description, ok := c.literal()
			if !ok {
				return nil, c.fail("expected a quoted description")
			}
			act.Description = description
		default:
			return nil, c.fail("unexpected %q", c.tokens[c.pos].Text)
		}
	}

	if act.Project == "" {
		return nil, c.fail("missing project")
	}
	return act, nil
}

func parseTransition(c *cursor, _ string) (Action, error) {
	key, err := c.issueKey()
	if err != nil {
		return nil, err
	}
	if !c.accept("to") {
		return nil, c.fail("expected 'to' after %s", key)
	}

	phrase := c.rest()
	if phrase == "" {
		return nil, c.fail("expected a target status")
	}
	status, err := ParseStatus(phrase)
	if err != nil {
		return nil, fmt.Errorf("%w in %q", err, c.line)
	}
	return Transition{IssueKey: key, Target: status}, nil
}

// parseShortcut handles one-word transitions such as "close AIK-1".
func parseShortcut(c *cursor, verb string) (Action, error) {
	key, err := c.issueKey()
	if err != nil {
		return nil, err
	}
	if !c.done() {
		return nil, c.fail("unexpected %q", c.tokens[c.pos].Text)
	}

	target := models.StatusDone
	if verb == "reopen" || verb == "start" {
		target = models.StatusInProgress
	}
	return Transition{IssueKey: key, Target: target}, nil
}

func parseModify(c *cursor, _ string) (Action, error) {
	key, err := c.issueKey()
	if err != nil {
		return nil, err
	}

	t, ok := c.next()
	if !ok || t.Quoted {
		return nil, c.fail("expected a field (summary or description)")
	}
	field, ok := fields[t.Word]
	if !ok {
		return nil, c.fail("unsupported field %q", t.Text)
	}

	if !c.accept("to", "as") {
		return nil, c.fail("expected 'to' after %s", field)
	}
	value, ok := c.literal()
	if !ok {
		return nil, c.fail("expected a quoted value")
	}
	if !c.done() {
		return nil, c.fail("unexpected %q", c.tokens[c.pos].Text)
	}
	return ModifyField{IssueKey: key, Field: field, Value: value}, nil
}

func parseAssign(c *cursor, _ string) (Action, error) {
	key, err := c.issueKey()
	if err != nil {
		return nil, err
	}
	if !c.accept("to") {
		return nil, c.fail("expected 'to' after %s", key)
	}

	assignee := c.rest()
	if assignee == "" {
		return nil, c.fail("expected an assignee")
	}
	switch strings.ToLower(assignee) {
	case "unassigned", "nobody", "none":
		assignee = models.Unassigned
	}
	return Assign{IssueKey: key, Assignee: assignee}, nil
}

func parseUnassign(c *cursor, _ string) (Action, error) {
	key, err := c.issueKey()
	if err != nil {
		return nil, err
	}
	if !c.done() {
		return nil, c.fail("unexpected %q", c.tokens[c.pos].Text)
	}
	return Assign{IssueKey: key, Assignee: models.Unassigned}, nil
}

// parseComment accepts "add comment '<text>' to KEY" and "comment '<text>' on KEY".
func parseComment(c *cursor, verb string) (Action, error) {
	if verb == "add" && !c.accept("comment") {
		return nil, c.fail("expected 'comment' after 'add'")
	}

	text, ok := c.literal()
	if !ok {
		return nil, c.fail("expected a quoted comment")
	}
	if !c.accept("to", "on") {
		return nil, c.fail("expected 'to' or 'on' after the comment")
	}
	key, err := c.issueKey()
	if err != nil {
		return nil, err
	}
	if !c.done() {
		return nil, c.fail("unexpected %q", c.tokens[c.pos].Text)
	}
	return AddComment{IssueKey: key, Text: text}, nil
}

func isSummaryMarker(word string) bool {
	return word == "called" || word == "titled" || word == "named"
}

// cursor walks the token stream of a single line.
type cursor struct {
	line   string
	tokens []Token
	pos    int
}

func (c *cursor) done() bool {
	return c.pos >= len(c.tokens)
}

func (c *cursor) peek() (Token, bool) {
	if c.done() {
		return Token{}, false
	}
	return c.tokens[c.pos], true
}

func (c *cursor) next() (Token, bool) {
	t, ok := c.peek()
	if ok {
		c.pos++
	}
	return t, ok
}

// accept consumes the next token if it is one of the given unquoted words.
func (c *cursor) accept(words ...string) bool {
	t, ok := c.peek()
	if !ok || t.Quoted {
		return false
	}
	for _, w := range words {
		if t.Word == w {
			c.pos++
			return true
		}
	}
	return false
}

// literal consumes the next token if it is quoted.
func (c *cursor) literal() (string, bool) {
	t, ok := c.peek()
	if !ok || !t.Quoted {
		return "", false
	}
	c.pos++
	return t.Text, true
}

// rest consumes every remaining token. A lone quoted literal is returned as
// is; otherwise the original words are joined by single spaces.
func (c *cursor) rest() string {
	remaining := c.tokens[c.pos:]
	c.pos = len(c.tokens)
	if len(remaining) == 1 && remaining[0].Quoted {
		return remaining[0].Text
	}
	parts := make([]string, 0, len(remaining))
	for _, t := range remaining {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}

func (c *cursor) issueKey() (string, error) {
	c.accept("issue", "ticket")
	t, ok := c.next()
	if !ok || t.Quoted {
		return "", c.fail("expected an issue key")
	}
	if t.Word == "it" || t.Word == "last" {
		return LastIssue, nil
	}
	if !issueKeyPattern.MatchString(t.Text) {
		return "", c.fail("%q is not an issue key", t.Text)
	}
	return strings.ToUpper(t.Text), nil
}

func (c *cursor) projectKey() (string, error) {
	t, ok := c.next()
	if !ok || t.Quoted {
		return "", c.fail("expected a project key")
	}
	key := strings.ToUpper(t.Text)
	if !projectKeyPattern.MatchString(key) {
		return "", c.fail("%q is not a project key", t.Text)
	}
	return key, nil
}

func (c *cursor) fail(format string, args ...any) error {
	return fmt.Errorf("%w %q: %s", ErrUnparsableCommand, c.line, fmt.Sprintf(format, args...))
}
