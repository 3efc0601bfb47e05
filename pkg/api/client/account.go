package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/report"
)

// CurrentTeam resolves the team requests act on.
func (c *Client) CurrentTeam(ctx context.Context) (domain.Team, error) {
	var team domain.Team
	err := c.do(ctx, http.MethodGet, "/teams/current", nil, &team)
	return team, err
}

// ListTeams returns all teams for the authenticated user.
func (c *Client) ListTeams(ctx context.Context) ([]domain.Team, error) {
	var teams []domain.Team
	if err := c.do(ctx, http.MethodGet, "/teams", nil, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// CreateTeam creates a team owned by the caller.
func (c *Client) CreateTeam(ctx context.Context, name string) (domain.Team, error) {
	var team domain.Team
	err := c.do(ctx, http.MethodPost, "/teams", map[string]string{"name": name}, &team)
	return team, err
}

// AddMember adds a registered account to a team.
func (c *Client) AddMember(ctx context.Context, teamID, email, role string) (domain.TeamMember, error) {
	body := map[string]string{"email": email, "role": role}
	var member domain.TeamMember
	err := c.do(ctx, http.MethodPost, "/teams/"+url.PathEscape(teamID)+"/members", body, &member)
	return member, err
}

// Members lists a team's members.
func (c *Client) Members(ctx context.Context, teamID string) ([]domain.TeamMember, error) {
	var members []domain.TeamMember
	if err := c.do(ctx, http.MethodGet, "/teams/"+url.PathEscape(teamID)+"/members", nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// ProfileInput is the editable profile. A nil AvatarURL leaves the avatar unchanged.
type ProfileInput struct {
	FullName  string  `json:"full_name"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Profile returns the caller's profile.
func (c *Client) Profile(ctx context.Context) (domain.Profile, error) {
	var p domain.Profile
	err := c.do(ctx, http.MethodGet, "/profile", nil, &p)
	return p, err
}

// UpdateProfile stores the profile and returns the saved row.
func (c *Client) UpdateProfile(ctx context.Context, in ProfileInput) (domain.Profile, error) {
	var p domain.Profile
	err := c.do(ctx, http.MethodPut, "/profile", in, &p)
	return p, err
}

// UploadAvatar sends an image and returns its public URL. It does not touch the profile.
func (c *Client) UploadAvatar(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read avatar: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/storage/avatars", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.send(req, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// StatusReport fetches the organisation status digest.
func (c *Client) StatusReport(ctx context.Context) (report.Digest, error) {
	var digest report.Digest
	err := c.do(ctx, http.MethodGet, "/reports/status", nil, &digest)
	return digest, err
}

// StatusReportPDF downloads the rendered status report.
func (c *Client) StatusReportPDF(ctx context.Context) ([]byte, error) {
	var data []byte
	if err := c.do(ctx, http.MethodGet, "/reports/status.pdf", nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}
