package source

import (
	"net/url"
	"regexp"
	"strings"

	"seedwatch/pkg/errors"
)

// Platform identifies where comments come from
type Platform string

const (
	PlatformTikTok  Platform = "tiktok"
	PlatformYouTube Platform = "youtube"
)

var (
	tiktokHosts = map[string]bool{
		"tiktok.com":     true,
		"www.tiktok.com": true,
		"m.tiktok.com":   true,
		"vm.tiktok.com":  true,
	}
	youtubeHosts = map[string]bool{
		"youtube.com":     true,
		"www.youtube.com": true,
		"m.youtube.com":   true,
		"youtu.be":        true,
	}

	tiktokVideoID    = regexp.MustCompile(`/video/(\d+)`)
	tiktokUsername   = regexp.MustCompile(`/@([^/]+)`)
	youtubeShortsID  = regexp.MustCompile(`^/shorts/([A-Za-z0-9_-]{6,})`)
	youtubeVideoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)
)

// Target is a validated video URL
type Target struct {
	Platform Platform `json:"platform"`
	URL      string   `json:"url"`
	VideoID  string   `json:"video_id,omitempty"`
	Username string   `json:"username,omitempty"`
}

// ShortLink reports whether the URL must be resolved before the video id is known
func (t Target) ShortLink() bool {
	return t.Platform == PlatformTikTok && t.VideoID == "" && t.Username == ""
}

// Validate checks that raw is a TikTok or YouTube video URL and extracts
// the video id and, for TikTok, the username
func Validate(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, errors.NewValidationError("URL is required", nil)
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Target{}, errors.NewValidationError("Invalid URL", map[string]interface{}{"url": raw})
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case tiktokHosts[host]:
		return validateTikTok(raw, host, u)
	case youtubeHosts[host]:
		return validateYouTube(raw, host, u)
	default:
		return Target{}, errors.NewValidationError("URL is not a TikTok or YouTube link", map[string]interface{}{"url": raw})
	}
}

func validateTikTok(raw, host string, u *url.URL) (Target, error) {
	t := Target{Platform: PlatformTikTok, URL: raw}
	if host == "vm.tiktok.com" {
		if strings.Trim(u.Path, "/") == "" {
			return Target{}, errors.NewValidationError("URL is not a TikTok video link", map[string]interface{}{"url": raw})
		}
		return t, nil
	}

	if !strings.Contains(u.Path, "/video/") && !strings.Contains(u.Path, "/@") {
		return Target{}, errors.NewValidationError("URL is not a TikTok video link", map[string]interface{}{"url": raw})
	}
	if m := tiktokVideoID.FindStringSubmatch(u.Path); m != nil {
		t.VideoID = m[1]
	}
	if m := tiktokUsername.FindStringSubmatch(u.Path); m != nil {
		t.Username = m[1]
	}
	return t, nil
}

func validateYouTube(raw, host string, u *url.URL) (Target, error) {
	t := Target{Platform: PlatformYouTube, URL: raw}
	switch {
	case host == "youtu.be":
		t.VideoID = strings.Trim(u.Path, "/")
	case u.Path == "/watch":
		t.VideoID = u.Query().Get("v")
	default:
		if m := youtubeShortsID.FindStringSubmatch(u.Path); m != nil {
			t.VideoID = m[1]
		}
	}

	if !youtubeVideoIDRe.MatchString(t.VideoID) {
		return Target{}, errors.NewValidationError("URL is not a YouTube video link", map[string]interface{}{"url": raw})
	}
	return t, nil
}
