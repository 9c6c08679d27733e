package archive

import (
	"context"
	"fmt"

	"github.com/google/go-github/v69/github"
)

// GitHub publishes records as repository issues and blobs as repository
// contents on a branch.
type GitHub struct {
	Owner  string
	Repo   string
	Branch string

	client *github.Client
}

var _ Client = (*GitHub)(nil)

func NewGitHub(token, owner, repo, branch string) *GitHub {
	if branch == "" {
		branch = "main"
	}
	return &GitHub{
		Owner:  owner,
		Repo:   repo,
		Branch: branch,
		client: github.NewClient(nil).WithAuthToken(token),
	}
}

func (g *GitHub) CreateRecord(ctx context.Context, title, body string, labels []string) (RecordRef, error) {
	req := &github.IssueRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
	}
	if len(labels) > 0 {
		req.Labels = &labels
	}

	issue, _, err := g.client.Issues.Create(ctx, g.Owner, g.Repo, req)
	if err != nil {
		return RecordRef{}, fmt.Errorf("create issue: %w", err)
	}
	return RecordRef{
		ID:  int64(issue.GetNumber()),
		URL: issue.GetHTMLURL(),
	}, nil
}

func (g *GitHub) UploadBlob(ctx context.Context, path string, content []byte, message string) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
		Branch:  github.Ptr(g.Branch),
	}
	if _, _, err := g.client.Repositories.CreateFile(ctx, g.Owner, g.Repo, path, opts); err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}

	// Raw URL renders inline from issue markdown.
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s",
		g.Owner, g.Repo, g.Branch, path), nil
}
