package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// XtreamUserInfo is the subset of the Xtream player_api user_info
// payload the checker cares about.
type XtreamUserInfo struct {
	ExpDate        time.Time
	Status         string
	MaxConnections int
	ActiveCons     int
	IsTrial        bool
	CreatedAt      time.Time
}

// EndDate returns the account expiry as ddMMyyyy, or "" when the
// account has no expiry.
func (u XtreamUserInfo) EndDate() string {
	if u.ExpDate.IsZero() {
		return ""
	}
	return u.ExpDate.Format("02012006")
}

// XtreamLookup asks the panel behind a get.php style playlist URL for
// its account details. The playlist URL must carry username and
// password query parameters.
func XtreamLookup(ctx context.Context, client *http.Client, userAgent, playlistURL string) (XtreamUserInfo, error) {
	u, err := url.Parse(playlistURL)
	if err != nil {
		return XtreamUserInfo{}, fmt.Errorf("failed to parse playlist url: %w", err)
	}

	q := u.Query()
	username := q.Get("username")
	password := q.Get("password")
	if username == "" || password == "" {
		return XtreamUserInfo{}, fmt.Errorf("playlist url carries no xtream credentials")
	}

	basePath := "/"
	if idx := strings.LastIndex(u.Path, "/"); idx >= 0 {
		basePath = u.Path[:idx+1]
	}
	apiURL := fmt.Sprintf("%s://%s%splayer_api.php?username=%s&password=%s",
		u.Scheme, u.Host, basePath, url.QueryEscape(username), url.QueryEscape(password))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return XtreamUserInfo{}, fmt.Errorf("failed to build player_api request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return XtreamUserInfo{}, fmt.Errorf("player_api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return XtreamUserInfo{}, fmt.Errorf("player_api returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return XtreamUserInfo{}, fmt.Errorf("failed to read player_api response: %w", err)
	}

	var payload struct {
		UserInfo map[string]any `json:"user_info"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return XtreamUserInfo{}, fmt.Errorf("failed to decode player_api response: %w", err)
	}
	if payload.UserInfo == nil {
		return XtreamUserInfo{}, fmt.Errorf("player_api response has no user_info")
	}

	info := XtreamUserInfo{
		ExpDate:        epochField(payload.UserInfo, "exp_date"),
		Status:         stringField(payload.UserInfo, "status"),
		MaxConnections: intField(payload.UserInfo, "max_connections"),
		ActiveCons:     intField(payload.UserInfo, "active_cons"),
		IsTrial:        intField(payload.UserInfo, "is_trial") == 1,
		CreatedAt:      epochField(payload.UserInfo, "created_at"),
	}
	return info, nil
}

// Panels serve numeric fields as numbers or strings depending on the
// software version, so every accessor accepts both.

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return ""
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

func epochField(m map[string]any, key string) time.Time {
	secs := int64(intField(m, key))
	if secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}
