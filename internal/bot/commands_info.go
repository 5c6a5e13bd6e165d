package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/betterhood/hoodbot/internal/format"
	"github.com/betterhood/hoodbot/internal/services"
)

// githubClient fetches recent commits for the updates command.
type githubClient struct {
	apiURL string
	client *http.Client
}

// newGitHubClient turns a github.com repo URL into a commits API client.
// A nil client is returned when no valid repo URL is configured.
func newGitHubClient(repoURL string) *githubClient {
	if !strings.HasPrefix(repoURL, "https://github.com/") {
		return nil
	}
	path := strings.Trim(strings.TrimPrefix(repoURL, "https://github.com/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		return nil
	}

	return &githubClient{
		apiURL: fmt.Sprintf("https://api.github.com/repos/%s/%s/commits", parts[0], parts[1]),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type githubCommit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

func (g *githubClient) recentCommits(ctx context.Context, limit int) ([]githubCommit, error) {
	url := fmt.Sprintf("%s?per_page=%d", g.apiURL, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch commits: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github api returned status %d", resp.StatusCode)
	}

	var commits []githubCommit
	if err := json.NewDecoder(resp.Body).Decode(&commits); err != nil {
		return nil, fmt.Errorf("decode commits: %w", err)
	}
	return commits, nil
}

func (b *Bot) cmdBotInfo(ctx context.Context, m *discordgo.Message, args []string) error {
	embed := newEmbed("Bot Info", "", mainEmbedColor)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Uptime", Value: format.Duration(time.Since(b.startedAt)), Inline: true},
		{Name: "Latency", Value: b.session.HeartbeatLatency().Round(time.Millisecond).String(), Inline: true},
		{Name: "Runtime", Value: runtime.Version(), Inline: true},
	}
	_, err := b.replyEmbed(m, embed)
	return err
}

func (b *Bot) cmdUpdates(ctx context.Context, m *discordgo.Message, args []string) error {
	if b.github == nil {
		return services.Reject("No GitHub repository is configured for this bot.")
	}

	commits, err := b.github.recentCommits(ctx, 3)
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		return services.Reject("No commits found for the configured repository.")
	}

	embed := newEmbed("Latest Updates", "", mainEmbedColor)
	for _, c := range commits {
		title := strings.SplitN(c.Commit.Message, "\n", 2)[0]
		sha := c.SHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%s - %s", sha, c.Commit.Author.Name),
			Value: fmt.Sprintf("[%s](%s) (%s)", title, c.HTMLURL,
				c.Commit.Author.Date.Format("2006-01-02")),
		})
	}
	_, err = b.replyEmbed(m, embed)
	return err
}
