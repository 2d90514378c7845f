package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cli/oauth"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the Skylift control plane using GitHub",
	Long: `Authenticate using the GitHub OAuth device flow, then exchange the
GitHub token for a Skylift API token.`,
	RunE: doLogin,
}

type gitHubUser struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type savedTokens struct {
	GitHubToken string     `json:"github_token"`
	APIToken    string     `json:"api_token"`
	User        gitHubUser `json:"user"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

func apiURL() string {
	if url := os.Getenv("SKYLIFT_API_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func tokenPath() string {
	return filepath.Join(skyliftDir(), "token.json")
}

func doLogin(cmd *cobra.Command, args []string) error {
	clientID := os.Getenv("GITHUB_CLIENT_ID")
	if clientID == "" {
		return fmt.Errorf("GITHUB_CLIENT_ID is not set")
	}

	fmt.Println("🔐 Starting GitHub authentication...")

	flow := &oauth.Flow{
		Host:     oauth.GitHubHost("https://github.com"),
		ClientID: clientID,
		Scopes:   []string{"read:user", "user:email"},
	}

	accessToken, err := flow.DetectFlow()
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	user, err := getCurrentUser(accessToken.Token)
	if err != nil {
		return fmt.Errorf("failed to verify authentication: %w", err)
	}

	apiToken, err := exchangeToken(accessToken.Token, user)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	if err := saveTokens(accessToken.Token, apiToken, user); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Printf("✅ Logged in as %s\n", user.Login)
	return nil
}

func getCurrentUser(token string) (*gitHubUser, error) {
	req, err := http.NewRequest("GET", "https://api.github.com/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API error: %s", resp.Status)
	}

	var user gitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// exchangeToken trades a GitHub token for a Skylift API token.
func exchangeToken(githubToken string, user *gitHubUser) (string, error) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"github_token": githubToken,
		"github_id":    user.ID,
		"github_login": user.Login,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", apiURL()+"/v1/auth/exchange", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("API error: %s", errResp.Error)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}

func saveTokens(githubToken, apiToken string, user *gitHubUser) error {
	if err := os.MkdirAll(skyliftDir(), 0700); err != nil {
		return err
	}

	data := savedTokens{
		GitHubToken: githubToken,
		APIToken:    apiToken,
		User:        *user,
		ExpiresAt:   time.Now().Add(90 * 24 * time.Hour),
	}

	file, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewEncoder(file).Encode(data)
}

func loadToken() (string, error) {
	file, err := os.Open(tokenPath())
	if err != nil {
		return "", fmt.Errorf("not authenticated; run 'skylift login' first")
	}
	defer file.Close()

	var data savedTokens
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return "", err
	}

	if time.Now().After(data.ExpiresAt) {
		return "", fmt.Errorf("session expired, run 'skylift login' again")
	}
	return data.APIToken, nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out from the Skylift control plane",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.Remove(tokenPath()); err != nil {
			if os.IsNotExist(err) {
				fmt.Println("Not logged in")
				return nil
			}
			return fmt.Errorf("failed to logout: %w", err)
		}
		fmt.Println("Successfully logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current authenticated user",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(tokenPath())
		if err != nil {
			return fmt.Errorf("not logged in")
		}
		defer file.Close()

		var data savedTokens
		if err := json.NewDecoder(file).Decode(&data); err != nil {
			return err
		}
		if time.Now().After(data.ExpiresAt) {
			return fmt.Errorf("session expired")
		}

		fmt.Printf("Logged in as: %s\n", data.User.Login)
		fmt.Printf("Session expires: %s\n", data.ExpiresAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}
