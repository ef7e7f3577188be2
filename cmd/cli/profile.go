package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your profile settings",
	Long:  "Commands for viewing and editing your profile",
}

var getProfileCmd = &cobra.Command{
	Use:   "get",
	Short: "Get your current profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getProfile()
	},
}

var (
	updateDisplayName string
	updateBio         string
	updateAvatarURL   string
	updateSensitive   string
)

var updateProfileCmd = &cobra.Command{
	Use:   "update",
	Short: "Update profile fields",
	Long:  "Update display name, bio, avatar, or the sensitive content preference",
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateProfile()
	},
}

func init() {
	updateProfileCmd.Flags().StringVar(&updateDisplayName, "display-name", "", "New display name")
	updateProfileCmd.Flags().StringVar(&updateBio, "bio", "", "New bio")
	updateProfileCmd.Flags().StringVar(&updateAvatarURL, "avatar", "", "New avatar URL")
	updateProfileCmd.Flags().StringVar(&updateSensitive, "show-sensitive", "", "Show sensitive posts in feeds: true or false")

	profileCmd.AddCommand(getProfileCmd)
	profileCmd.AddCommand(updateProfileCmd)
}

func getProfile() error {
	body, err := apiRequest("GET", "/api/v1/auth/me", nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var profile map[string]interface{}
	if err := json.Unmarshal(body, &profile); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Println()
	if username, ok := profile["username"].(string); ok {
		fmt.Printf("Username:     %s\n", username)
	}
	if displayName, ok := profile["display_name"].(string); ok {
		fmt.Printf("Display Name: %s\n", displayName)
	}
	if bio, ok := profile["bio"].(string); ok && bio != "" {
		fmt.Printf("Bio:          %s\n", bio)
	}
	if followers, ok := profile["follower_count"].(float64); ok {
		fmt.Printf("Followers:    %.0f\n", followers)
	}
	if posts, ok := profile["post_count"].(float64); ok {
		fmt.Printf("Posts:        %.0f\n", posts)
	}
	if sensitive, ok := profile["show_sensitive_posts"].(bool); ok {
		fmt.Printf("Sensitive:    %v\n", sensitive)
	}
	fmt.Println()

	return nil
}

func updateProfile() error {
	payload := map[string]interface{}{}
	if updateDisplayName != "" {
		payload["display_name"] = updateDisplayName
	}
	if updateBio != "" {
		payload["bio"] = updateBio
	}
	if updateAvatarURL != "" {
		payload["avatar_url"] = updateAvatarURL
	}
	switch updateSensitive {
	case "":
	case "true":
		payload["show_sensitive_posts"] = true
	case "false":
		payload["show_sensitive_posts"] = false
	default:
		return fmt.Errorf("--show-sensitive must be true or false")
	}
	if len(payload) == 0 {
		return fmt.Errorf("nothing to update; pass at least one flag")
	}

	body, err := apiRequest("PUT", "/api/v1/users/me", payload)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
	} else {
		fmt.Println("Profile updated")
	}
	return nil
}
