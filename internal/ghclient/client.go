package ghclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/config"
	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// ErrNoToken is returned when no personal access token is configured.
var ErrNoToken = errors.New("GitHub token not set (set github.token, REPOLENS_GITHUB_TOKEN or GITHUB_TOKEN)")

// Config configures a Client.
type Config struct {
	Token config.Secret
	// BaseURL is the REST API root for GitHub Enterprise, for example
	// https://ghe.example.com/api/v3/. Empty means api.github.com.
	BaseURL string
	// RequestsPerSecond limits outgoing calls; 0 disables the limiter.
	RequestsPerSecond float64
	Burst             int
	Retry             RetryConfig
	Timeout           time.Duration
}

// ConfigFrom maps the user-facing configuration section.
func ConfigFrom(c config.GitHubConfig) Config {
	return Config{
		Token:             c.Token,
		BaseURL:           c.BaseURL,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
		Retry:             RetryConfig{MaxRetries: c.MaxRetries},
		Timeout:           c.Timeout.Duration(),
	}
}

// Repository is a repository visible to the authenticated user.
type Repository struct {
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Owner         string    `json:"owner"`
	Private       bool      `json:"private"`
	DefaultBranch string    `json:"default_branch"`
	Description   string    `json:"description,omitempty"`
	CloneURL      string    `json:"clone_url"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Visibility returns "private" or "public".
func (r Repository) Visibility() string {
	if r.Private {
		return "private"
	}
	return "public"
}

func fromGitHub(r *github.Repository) Repository {
	return Repository{
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Owner:         r.GetOwner().GetLogin(),
		Private:       r.GetPrivate(),
		DefaultBranch: r.GetDefaultBranch(),
		Description:   r.GetDescription(),
		CloneURL:      r.GetCloneURL(),
		UpdatedAt:     r.GetUpdatedAt().Time,
	}
}

// Client is a rate-limited, retrying GitHub API client.
type Client struct {
	gh      *github.Client
	limiter *rate.Limiter
	retry   RetryConfig
	token   config.Secret
	logger  *logging.Logger
}

// NewClient creates a client authenticated with a static token.
func NewClient(ctx context.Context, cfg Config, logger *logging.Logger) (*Client, error) {
	if !cfg.Token.IsSet() {
		return nil, ErrNoToken
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token.Value()})
	httpClient := oauth2.NewClient(ctx, ts)
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}
	gh := github.NewClient(httpClient)

	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parsing GitHub base URL: %w", err)
		}
		gh.BaseURL = u
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	cfg.Retry.ApplyDefaults()
	return &Client{
		gh:      gh,
		limiter: limiter,
		retry:   cfg.Retry,
		token:   cfg.Token,
		logger:  logger.Named("github"),
	}, nil
}

// do waits for the limiter, then runs call with retries.
func (c *Client) do(ctx context.Context, op string, call func() (*github.Response, error)) (*github.Response, error) {
	start := time.Now()
	resp, err := retry(ctx, c.retry, c.logger, func() (*github.Response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return call()
	})
	observe(op, start, resp, err)
	return resp, err
}

// ListOptions controls ListRepositories.
type ListOptions struct {
	// Descending reverses the case-insensitive name order.
	Descending bool
	// Affiliation is passed to GitHub ("owner", "collaborator",
	// "organization_member", comma separated). Empty means all.
	Affiliation string
}

// ListRepositories returns every repository of the authenticated user,
// sorted by name case-insensitively.
func (c *Client) ListRepositories(ctx context.Context, opts ListOptions) ([]Repository, error) {
	listOpts := &github.RepositoryListByAuthenticatedUserOptions{
		Affiliation: opts.Affiliation,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var repos []Repository
	for {
		var page []*github.Repository
		resp, err := c.do(ctx, "list_repos", func() (*github.Response, error) {
			var (
				resp *github.Response
				err  error
			)
			page, resp, err = c.gh.Repositories.ListByAuthenticatedUser(ctx, listOpts)
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("listing repositories: %w", err)
		}
		for _, r := range page {
			repos = append(repos, fromGitHub(r))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage
	}

	SortByName(repos, opts.Descending)
	c.logger.Debug(ctx, "listed repositories", zap.Int("count", len(repos)))
	return repos, nil
}

// SortByName orders repos by lower-cased name, breaking ties by full name.
func SortByName(repos []Repository, descending bool) {
	sort.SliceStable(repos, func(i, j int) bool {
		a, b := strings.ToLower(repos[i].Name), strings.ToLower(repos[j].Name)
		if a == b {
			a, b = strings.ToLower(repos[i].FullName), strings.ToLower(repos[j].FullName)
		}
		if descending {
			return a > b
		}
		return a < b
	})
}

// Get resolves "owner/name", or a bare name owned by the authenticated user.
func (c *Client) Get(ctx context.Context, name string) (Repository, error) {
	owner, repo, ok := strings.Cut(name, "/")
	if !ok {
		repo = name
		login, err := c.Login(ctx)
		if err != nil {
			return Repository{}, err
		}
		owner = login
	}

	var r *github.Repository
	_, err := c.do(ctx, "get_repo", func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		r, resp, err = c.gh.Repositories.Get(ctx, owner, repo)
		return resp, err
	})
	if err != nil {
		return Repository{}, fmt.Errorf("getting repository %s/%s: %w", owner, repo, err)
	}
	return fromGitHub(r), nil
}

// Login returns the authenticated user's login.
func (c *Client) Login(ctx context.Context) (string, error) {
	var u *github.User
	_, err := c.do(ctx, "get_user", func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		u, resp, err = c.gh.Users.Get(ctx, "")
		return resp, err
	})
	if err != nil {
		return "", fmt.Errorf("getting authenticated user: %w", err)
	}
	return u.GetLogin(), nil
}

// Token returns the configured token for clone-based access.
func (c *Client) Token() config.Secret {
	return c.token
}

// IsNotFound reports whether err is a GitHub 404.
func IsNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
