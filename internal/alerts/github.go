package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// maxIssueTitle caps the generated issue title length.
const maxIssueTitle = 120

// alertLabel tags every escalation issue so they can be filtered.
const alertLabel = "switchyard-alert"

// issueCreator abstracts the GitHub Issues API method we use, enabling test
// mocks.
type issueCreator interface {
	Create(ctx context.Context, owner, repo string, issue *github.IssueRequest) (*github.Issue, *github.Response, error)
}

// GitHub opens an issue per escalation, leaving a durable and assignable
// trail of agent failures.
type GitHub struct {
	issues issueCreator
	owner  string
	repo   string
}

// GitHubOpts holds parameters for creating a GitHub issue sink.
type GitHubOpts struct {
	Token string // personal access token with issues scope
	Owner string
	Repo  string
	// For testing: inject a mock issues service instead of the real API.
	Issues issueCreator
}

// NewGitHub creates a GitHub issue sink.
func NewGitHub(opts GitHubOpts) (*GitHub, error) {
	if opts.Issues == nil && opts.Token == "" {
		return nil, fmt.Errorf("alerts: github: token is required")
	}
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("alerts: github: owner and repo are required")
	}

	g := &GitHub{issues: opts.Issues, owner: opts.Owner, repo: opts.Repo}
	if g.issues == nil {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		g.issues = github.NewClient(oauth2.NewClient(context.Background(), ts)).Issues
	}
	return g, nil
}

// Name implements Notifier.
func (g *GitHub) Name() string { return "github" }

// Post opens an issue titled with the first line of text.
func (g *GitHub) Post(ctx context.Context, text string) error {
	title := text
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	if len(title) > maxIssueTitle {
		title = title[:maxIssueTitle]
	}

	req := &github.IssueRequest{
		Title:  github.String(title),
		Body:   github.String(text),
		Labels: &[]string{alertLabel},
	}
	if _, _, err := g.issues.Create(ctx, g.owner, g.repo, req); err != nil {
		return fmt.Errorf("alerts: github: create issue: %w", err)
	}
	return nil
}

// Close implements Notifier. The GitHub client holds no connection.
func (g *GitHub) Close() error { return nil }
